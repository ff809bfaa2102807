package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver принимает наблюдения о завершённых запросах (метрики).
type HTTPObserver interface {
	InFlight() func()
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Instrument измеряет RPS, задержки и запросы в полёте. Метка route — шаблон
// маршрута chi ("/owners/{id}"), не сырой путь.
func Instrument(o HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if o == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := o.InFlight()
			defer done()

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}

			o.ObserveHTTP(r.Method, route, sw.Status(), time.Since(start))
		})
	}
}
