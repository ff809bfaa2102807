package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/http/handlers"
	"github.com/pribylovaa/go-tourism-gateway/internal/http/middleware"
	"github.com/pribylovaa/go-tourism-gateway/internal/metrics"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/ratelimit"
	"github.com/pribylovaa/go-tourism-gateway/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// TrustProxy — адрес клиента берётся из X-Forwarded-For/X-Real-IP.
	TrustProxy bool
	// Limiter ограничивает публичные маршруты входа; nil — без ограничения.
	Limiter ratelimit.Limiter
	// Metrics — nil отключает метрики.
	Metrics *metrics.Metrics
}

// NewRouter собирает http.Handler с chi, подключёнными middleware и
// таблицей маршрутов. Каждый маршрут регистрируется вместе со своими
// метаданными авторизации.
func NewRouter(svc *service.Service, p *authz.Pipeline, opts Options) http.Handler {
	root := chi.NewRouter()

	if opts.TrustProxy {
		root.Use(chimw.RealIP)
	}

	var (
		observer middleware.HTTPObserver
		rejects  middleware.RejectRecorder
		attempts handlers.AttemptRecorder
	)
	if opts.Metrics != nil {
		observer, rejects, attempts = opts.Metrics, opts.Metrics, opts.Metrics
	}

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Instrument(observer),
		middleware.Timeout(opts.Timeout), // общий дедлайн запроса
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, service.ErrNotFound)
	})

	rt := &routes{
		r:       root,
		p:       p,
		h:       handlers.New(svc, attempts),
		svc:     svc,
		limiter: opts.Limiter,
		rejects: rejects,
	}
	rt.register()

	return root
}

type routes struct {
	r       chi.Router
	p       *authz.Pipeline
	h       *handlers.Handlers
	svc     *service.Service
	limiter ratelimit.Limiter
	rejects middleware.RejectRecorder
}

// handle регистрирует маршрут с метаданными авторизации.
func (rt *routes) handle(method, pattern string, meta authz.Route, h http.HandlerFunc, limited bool) {
	mws := []func(http.Handler) http.Handler{}
	if limited {
		mws = append(mws, middleware.RateLimit(rt.limiter, meta.Name, rt.rejects))
	}
	mws = append(mws, middleware.Authorize(rt.p, meta))

	rt.r.With(mws...).Method(method, pattern, h)
}

func public(name string) authz.Route {
	return authz.Route{Name: name, Auth: authz.Public}
}

func protected(name string, min models.Role) authz.Route {
	return authz.Route{Name: name, Auth: authz.Protected, MinRole: min}
}

func owned(name string, owners authz.OwnerLoader) authz.Route {
	r := protected(name, models.RoleStandard)
	r.Resource = &authz.ResourceRule{Param: "id", Owners: owners}
	return r
}

// register — единая точка регистрации всех REST-эндпойнтов.
func (rt *routes) register() {
	const rateLimited = true

	// auth
	rt.handle(http.MethodPost, "/auth/sign-in", public("auth.sign_in"), rt.h.SignIn, rateLimited)
	rt.handle(http.MethodPost, "/auth/refresh-tokens", public("auth.refresh_tokens"), rt.h.RefreshTokens, false)
	rt.handle(http.MethodPost, "/auth/google-authentication", public("auth.google"), rt.h.GoogleAuthentication, rateLimited)

	// owners
	accountOwners := authz.OwnerLoaderFunc(rt.svc.AccountOwner)

	rt.handle(http.MethodPost, "/owners", public("owners.create"), rt.h.SignUp, rateLimited)
	rt.handle(http.MethodGet, "/owners/me", protected("owners.me", models.RoleStandard), rt.h.Me, false)
	rt.handle(http.MethodGet, "/owners/{id}", public("owners.get"), rt.h.GetOwner, false)
	rt.handle(http.MethodPatch, "/owners/{id}", owned("owners.update", accountOwners), rt.h.UpdateOwner, false)
	rt.handle(http.MethodDelete, "/owners/{id}", owned("owners.delete", accountOwners), rt.h.DeleteOwner, false)
	rt.handle(http.MethodPut, "/owners/{id}/role", protected("owners.set_role", models.RoleAdmin), rt.h.SetRole, false)

	// listings: у каждой категории свой загрузчик владельца.
	for _, kind := range models.ListingKinds {
		base := "/" + string(kind)
		owners := authz.OwnerLoaderFunc(rt.svc.ListingOwner(kind))

		rt.handle(http.MethodGet, base+"/{id}", public(string(kind)+".get"), rt.h.GetListing(kind), false)
		rt.handle(http.MethodDelete, base+"/{id}", owned(string(kind)+".delete", owners), rt.h.DeleteListing(kind), false)
	}
}
