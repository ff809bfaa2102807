// metrics — Prometheus-метрики шлюза: HTTP, решения авторизации,
// попытки аутентификации и отказы лимитера.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы попыток аутентификации.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics держит коллекторы; методы безопасны для конкурентного вызова.
type Metrics struct {
	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authzDecisions      *prometheus.CounterVec
	authAttempts        *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec
}

// New создаёт и регистрирует коллекторы в reg.
// В main передаётся prometheus.DefaultRegisterer, в тестах — свежий реестр.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		authzDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authz_decisions_total",
				Help: "Authorization decisions by route, deciding stage and outcome.",
			},
			[]string{"route", "stage", "outcome"},
		),
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Authentication attempts by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by the rate limiter.",
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.authzDecisions,
		m.authAttempts,
		m.rateLimited,
	)

	return m
}

// Handler отдаёт метрики из реестра g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// InFlight увеличивает счётчик запросов в полёте; вызов возвращённой
// функции уменьшает его.
func (m *Metrics) InFlight() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveHTTP учитывает завершённый HTTP-запрос. route — шаблон маршрута,
// а не сырой путь, чтобы не раздувать кардинальность.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// AuthzDecision реализует authz.Recorder.
func (m *Metrics) AuthzDecision(route, stage, outcome string) {
	m.authzDecisions.WithLabelValues(route, stage, outcome).Inc()
}

// AuthAttempt учитывает попытку входа: method — sign_in, refresh, google, sign_up.
func (m *Metrics) AuthAttempt(method string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	m.authAttempts.WithLabelValues(method, outcome).Inc()
}

// RateLimited учитывает отказ лимитера.
func (m *Metrics) RateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}
