package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
)

// Authorize прогоняет запрос через конвейер авторизации с метаданными route.
// Подключается на уровне маршрута (r.With), чтобы параметры пути chi
// были уже разобраны. Идентичность кладётся в контекст для хендлера.
func Authorize(p *authz.Pipeline, route authz.Route) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := func(name string) string { return chi.URLParam(r, name) }

			d, err := p.Authorize(r.Context(), route, r.Header.Get("Authorization"), params)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := r.Context()
			if d.Identity != nil {
				ctx = authz.IdentityInto(ctx, *d.Identity)
				ctx = log.With(ctx, "account_id", d.Identity.Subject.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
