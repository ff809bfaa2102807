package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Описание сервиса собрано вручную поверх well-known типов protobuf,
// поэтому отдельный .proto и кодогенерация не нужны:
//
//	service IdentityService {
//	  rpc VerifyToken(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	}
const (
	ServiceName       = "tourism.auth.v1.IdentityService"
	VerifyTokenMethod = "/" + ServiceName + "/VerifyToken"
)

// IdentityServiceServer — серверная сторона IdentityService.
type IdentityServiceServer interface {
	VerifyToken(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

// IdentityServiceDesc регистрируется через grpc.Server.RegisterService.
var IdentityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "VerifyToken",
			Handler:    verifyTokenHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tourism/auth/v1/identity.proto",
}

// RegisterIdentityServiceServer регистрирует реализацию на сервере.
func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&IdentityServiceDesc, srv)
}

func verifyTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServiceServer).VerifyToken(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: VerifyTokenMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServiceServer).VerifyToken(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

// IdentityServiceClient — клиент для сервисов объявлений.
type IdentityServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewIdentityServiceClient оборачивает соединение.
func NewIdentityServiceClient(cc grpc.ClientConnInterface) *IdentityServiceClient {
	return &IdentityServiceClient{cc: cc}
}

// VerifyToken вызывает IdentityService.VerifyToken.
func (c *IdentityServiceClient) VerifyToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, VerifyTokenMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
