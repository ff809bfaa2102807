// transport/grpc — gRPC-интроспекция access-токенов для сервисов объявлений.
// Здесь выполняется только маппинг результата проверки токена в ответ;
// сама проверка живёт в пакете token.
//
// Контракт VerifyToken:
//   - недействительный, просроченный или отсутствующий токен — НЕ RPC-ошибка,
//     а ответ {valid:false, reason:"..."};
//   - действительный токен — {valid:true, sub, email, role};
//   - прочие сбои -> codes.Internal без деталей.
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/token"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Причины отказа в ответе VerifyToken.
const (
	ReasonMissing = "missing_token"
	ReasonExpired = "token_expired"
	ReasonInvalid = "invalid_token"
)

// IdentityServer реализует IdentityServiceServer.
type IdentityServer struct {
	verifier authz.TokenVerifier
}

// NewIdentityServer создаёт сервер поверх проверки access-токенов.
func NewIdentityServer(verifier authz.TokenVerifier) *IdentityServer {
	return &IdentityServer{verifier: verifier}
}

// VerifyToken принимает сырой токен или значение заголовка "Bearer <token>".
func (s *IdentityServer) VerifyToken(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	const op = "transport.grpc.VerifyToken"

	raw := strings.TrimSpace(in.GetValue())
	if t, ok := authz.BearerToken(raw); ok {
		raw = t
	}
	if raw == "" {
		return invalid(ReasonMissing), nil
	}

	id, err := s.verifier.VerifyAccess(raw)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrTokenExpired):
		return invalid(ReasonExpired), nil
	case errors.Is(err, token.ErrInvalidToken):
		return invalid(ReasonInvalid), nil
	default:
		log.From(ctx).Error("verify_token_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, status.Error(codes.Internal, "internal server error")
	}

	out, err := structpb.NewStruct(map[string]any{
		"valid": true,
		"sub":   id.Subject.String(),
		"email": id.Email,
		"role":  id.Role.String(),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return out, nil
}

func invalid(reason string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"valid":  structpb.NewBoolValue(false),
		"reason": structpb.NewStringValue(reason),
	}}
}
