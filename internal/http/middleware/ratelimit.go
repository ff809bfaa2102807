package middleware

import (
	"log/slog"
	"net"
	"net/http"

	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/ratelimit"
)

// RejectRecorder учитывает отказы лимитера (метрики).
type RejectRecorder interface {
	RateLimited(route string)
}

// RateLimit ограничивает частоту запросов к маршруту name по адресу клиента.
// Если лимитер недоступен, запрос пропускается: отказ Redis не должен
// блокировать вход.
func RateLimit(l ratelimit.Limiter, name string, rec RejectRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)

			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				log.From(r.Context()).Warn("rate_limit_unavailable",
					slog.String("route", name),
					slog.String("err", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				if rec != nil {
					rec.RateLimited(name)
				}
				w.Header().Set("Retry-After", "60")
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP берёт хост из RemoteAddr; за прокси RemoteAddr заранее
// переписывает chi middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
