package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/redact"
)

// Logging кладёт request-scoped логгер в контекст и пишет итоговую запись
// о запросе. Тело не логируется, токен из Authorization маскируется.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			ctx := log.Into(r.Context(), reqLogger)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			level := slog.LevelInfo
			if sw.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", dur),
				slog.Int("bytes", sw.count),
			}
			if auth := r.Header.Get("Authorization"); auth != "" {
				attrs = append(attrs, slog.String("authorization", redact.Bearer(auth)))
			}

			log.From(r.Context()).LogAttrs(r.Context(), level, "http", attrs...)
		})
	}
}
