package authz

import (
	"context"

	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

type identityKey struct{}

// IdentityInto кладёт идентичность запрашивающего в контекст.
func IdentityInto(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достаёт идентичность; false — запрос анонимный.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}
