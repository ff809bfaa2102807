package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	"github.com/pribylovaa/go-tourism-gateway/internal/interceptors"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/token"
	"github.com/pribylovaa/go-tourism-gateway/mocks"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Тесты транспортного слоя: каждый поднимает отдельный bufconn-сервер
// с теми же интерсепторами, что и в main.

func newManagerAt(t *testing.T, now time.Time) *token.Manager {
	t.Helper()
	m, err := token.NewManager(token.Config{
		Secret:     []byte("grpc-test-secret-0123456789abcdef"),
		Issuer:     "api-tourisme",
		Audience:   []string{"api-tourisme"},
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		Leeway:     5 * time.Second,
	}, token.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return m
}

// startGRPC поднимает bufconn-gRPC-сервер и возвращает клиента.
func startGRPC(t *testing.T, verifier authz.TokenVerifier) *IdentityServiceClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		interceptors.Recover(slog.Default()),
		interceptors.UnaryLoggingInterceptor(slog.Default()),
		interceptors.WithTimeout(time.Second),
	))
	RegisterIdentityServiceServer(s, NewIdentityServer(verifier))

	go func() { _ = s.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = cc.Close(); s.Stop() })
	return NewIdentityServiceClient(cc)
}

func TestVerifyToken_Valid(t *testing.T) {
	m := newManagerAt(t, time.Now())
	client := startGRPC(t, m)

	sub := uuid.New()
	pair, err := m.Issue(sub, models.RoleAdmin, "admin@example.com")
	require.NoError(t, err)

	for _, in := range []string{pair.AccessToken, "Bearer " + pair.AccessToken} {
		out, err := client.VerifyToken(context.Background(), wrapperspb.String(in))
		require.NoError(t, err)

		f := out.AsMap()
		require.Equal(t, true, f["valid"])
		require.Equal(t, sub.String(), f["sub"])
		require.Equal(t, "admin@example.com", f["email"])
		require.Equal(t, "admin", f["role"])
	}
}

func TestVerifyToken_ExpiredIsNotAnRPCError(t *testing.T) {
	issued := newManagerAt(t, time.Now().Add(-time.Hour))
	pair, err := issued.Issue(uuid.New(), models.RoleStandard, "marie@example.com")
	require.NoError(t, err)

	client := startGRPC(t, newManagerAt(t, time.Now()))

	out, err := client.VerifyToken(context.Background(), wrapperspb.String(pair.AccessToken))
	require.NoError(t, err)
	require.Equal(t, false, out.AsMap()["valid"])
	require.Equal(t, ReasonExpired, out.AsMap()["reason"])
}

func TestVerifyToken_InvalidAndMissing(t *testing.T) {
	m := newManagerAt(t, time.Now())
	client := startGRPC(t, m)

	pair, err := m.Issue(uuid.New(), models.RoleStandard, "marie@example.com")
	require.NoError(t, err)

	tcs := map[string]struct {
		in     string
		reason string
	}{
		"garbage":       {"not.a.jwt", ReasonInvalid},
		"refresh_token": {pair.RefreshToken, ReasonInvalid},
		"empty":         {"", ReasonMissing},
		"blank":         {"   ", ReasonMissing},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			out, err := client.VerifyToken(context.Background(), wrapperspb.String(tc.in))
			require.NoError(t, err)
			require.Equal(t, false, out.AsMap()["valid"])
			require.Equal(t, tc.reason, out.AsMap()["reason"])
			require.NotContains(t, out.AsMap(), "sub")
		})
	}
}

func TestVerifyToken_UnexpectedErrorIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	v := mocks.NewMockTokenVerifier(ctrl)
	v.EXPECT().VerifyAccess("tok").Return(models.Identity{}, errors.New("boom"))

	client := startGRPC(t, v)

	_, err := client.VerifyToken(context.Background(), wrapperspb.String("tok"))
	require.Equal(t, codes.Internal, status.Code(err))
	require.NotContains(t, status.Convert(err).Message(), "boom")
}

func TestVerifyToken_PanicIsRecovered(t *testing.T) {
	ctrl := gomock.NewController(t)
	v := mocks.NewMockTokenVerifier(ctrl)
	v.EXPECT().VerifyAccess("tok").DoAndReturn(func(string) (models.Identity, error) { panic("boom") })

	client := startGRPC(t, v)

	_, err := client.VerifyToken(context.Background(), wrapperspb.String("tok"))
	require.Equal(t, codes.Internal, status.Code(err))
}
