package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
	"github.com/pribylovaa/go-tourism-gateway/internal/token"
	"github.com/stretchr/testify/require"
)

// capHandler — тестовый slog.Handler, который:
//   - аккумулирует базовые attrs, приходящие через Logger.With(...);
//   - собирает attrs из каждой записи в map[string]any;
//   - не создаёт реальных I/O.
type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errEnvelope struct {
	Error apiError `json:"error"`
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) apiError {
	t.Helper()
	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error
}

func TestChain_Order(t *testing.T) {
	order := []string{}

	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-begin")
				next.ServeHTTP(w, r)
				order = append(order, name+"-end")
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, mw("m1"), mw("m2")).ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenHeader, seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(HeaderRequestID)
		seenCtx = RequestIDFrom(r.Context())
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(respID)
	require.NoError(t, err)
	require.Equal(t, respID, seenHeader)
	require.Equal(t, respID, seenCtx)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set(HeaderRequestID, given)
	Chain(http.NotFoundHandler(), RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get(HeaderRequestID))
}

func TestRequestID_ReplacesOversized(t *testing.T) {
	rr := httptest.NewRecorder()
	req := makeReq("/rid3")
	req.Header.Set(HeaderRequestID, string(make([]byte, maxRequestIDLen+1)))
	Chain(http.NotFoundHandler(), RequestID()).ServeHTTP(rr, req)

	_, err := uuid.Parse(rr.Header().Get(HeaderRequestID))
	require.NoError(t, err)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var hasDeadline bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	Chain(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))
	require.True(t, hasDeadline)

	Chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))
	require.False(t, hasDeadline)
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	Chain(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestTimeout_CapsLaterDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	Chain(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout3").WithContext(parent))

	require.WithinDuration(t, time.Now().Add(50*time.Millisecond), childDL, 50*time.Millisecond)
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	Chain(panicHandler, Recover()).ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.Equal(t, "internal", decodeErr(t, rr).Code)
}

func TestLogging_WritesRecord_WithStatusDurBytesAndRequestID(t *testing.T) {
	h := &capHandler{}
	logger := slog.New(h)

	const rid = "rid-456"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Без WriteHeader статус становится 200 после Write.
		_, _ = w.Write([]byte("0123456789"))
	})

	handler := Chain(final, RequestID(), Logging(logger))

	rr := httptest.NewRecorder()
	req := makeReq("/log")
	req.Header.Set(HeaderRequestID, rid)
	req.Header.Set("Authorization", "Bearer secret-token")
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, h.count)
	require.Equal(t, "http", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)

	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/log", h.attrs["path"])
	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	require.EqualValues(t, 10, h.attrs["bytes"])
	require.Equal(t, rid, h.attrs["request_id"])
	require.Contains(t, h.attrs, "dur")
	require.Equal(t, "Bearer [REDACTED_TOKEN]", h.attrs["authorization"])

	for _, v := range h.attrs {
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret-token")
		}
	}
}

func TestLogging_ServerErrorsAtErrorLevel(t *testing.T) {
	h := &capHandler{}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	Chain(final, Logging(slog.New(h))).ServeHTTP(httptest.NewRecorder(), makeReq("/down"))
	require.Equal(t, slog.LevelError, h.lastLvl)
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())

	_, _ = sw.Write([]byte("abcd"))

	require.Equal(t, http.StatusOK, sw.Status())
	require.Equal(t, 4, sw.count)
}

// --- Authorize ---

const testSecret = "0123456789abcdef0123456789abcdef"

func newPipeline(t *testing.T) (*authz.Pipeline, *token.Manager) {
	t.Helper()
	m, err := token.NewManager(token.Config{
		Secret:     []byte(testSecret),
		Issuer:     "api-tourisme",
		Audience:   []string{"api-tourisme"},
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		Leeway:     5 * time.Second,
	})
	require.NoError(t, err)
	return authz.New(m), m
}

// serveRoute регистрирует h на chi-роутере с Authorize и выполняет запрос.
func serveRoute(p *authz.Pipeline, route authz.Route, pattern, target, header string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.With(Authorize(p, route)).Delete(pattern, h)

	req := httptest.NewRequest(http.MethodDelete, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAuthorize_PutsIdentityIntoContext(t *testing.T) {
	p, m := newPipeline(t)
	me := uuid.New()
	listing := uuid.New()

	pair, err := m.Issue(me, models.RoleStandard, "marie@example.com")
	require.NoError(t, err)

	route := authz.Route{
		Name:    "places.delete",
		Auth:    authz.Protected,
		MinRole: models.RoleStandard,
		Resource: &authz.ResourceRule{Param: "id", Owners: authz.OwnerLoaderFunc(func(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
			if id != listing {
				return uuid.Nil, storage.ErrNotFound
			}
			return me, nil
		})},
	}

	var got models.Identity
	rr := serveRoute(p, route, "/places/{id}", "/places/"+listing.String(), "Bearer "+pair.AccessToken,
		func(w http.ResponseWriter, r *http.Request) {
			got, _ = authz.IdentityFrom(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, me, got.Subject)
	require.Equal(t, models.RoleStandard, got.Role)

	rr = serveRoute(p, route, "/places/{id}", "/places/"+uuid.NewString(), "Bearer "+pair.AccessToken,
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("handler must not run") })
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serveRoute(p, route, "/places/{id}", "/places/42", "Bearer "+pair.AccessToken,
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("handler must not run") })
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthorize_RejectsMissingToken(t *testing.T) {
	p, _ := newPipeline(t)
	route := authz.Route{Name: "owners.me", Auth: authz.Protected, MinRole: models.RoleStandard}

	rr := serveRoute(p, route, "/owners/me", "/owners/me", "",
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("handler must not run") })

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthenticated", decodeErr(t, rr).Code)
}

func TestAuthorize_RefreshTokenIsNotAccess(t *testing.T) {
	p, m := newPipeline(t)
	pair, err := m.Issue(uuid.New(), models.RoleAdmin, "root@example.com")
	require.NoError(t, err)

	route := authz.Route{Name: "owners.me", Auth: authz.Protected, MinRole: models.RoleStandard}
	rr := serveRoute(p, route, "/owners/me", "/owners/me", "Bearer "+pair.RefreshToken,
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("handler must not run") })

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthorize_PublicRouteAnonymous(t *testing.T) {
	p, _ := newPipeline(t)

	var anon bool
	rr := serveRoute(p, authz.Route{Name: "places.get", Auth: authz.Public}, "/places/{id}", "/places/x", "",
		func(w http.ResponseWriter, r *http.Request) {
			_, ok := authz.IdentityFrom(r.Context())
			anon = !ok
		})

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, anon)
}

// --- RateLimit ---

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

type countRecorder struct{ n int }

func (c *countRecorder) RateLimited(string) { c.n++ }

func TestRateLimit_Rejects(t *testing.T) {
	l := &stubLimiter{allow: false}
	rec := &countRecorder{}

	rr := httptest.NewRecorder()
	Chain(http.NotFoundHandler(), RateLimit(l, "auth.sign_in", rec)).ServeHTTP(rr, makeReq("/auth/sign-in"))

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "resource_exhausted", decodeErr(t, rr).Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
	require.Equal(t, []string{"auth.sign_in:127.0.0.1"}, l.keys)
	require.Equal(t, 1, rec.n)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	l := &stubLimiter{err: errors.New("redis down")}
	h := &capHandler{}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	req := makeReq("/auth/sign-in")
	req = req.WithContext(log.Into(req.Context(), slog.New(h)))

	rr := httptest.NewRecorder()
	Chain(final, RateLimit(l, "auth.sign_in", nil)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "rate_limit_unavailable", h.lastMsg)
}

// --- Instrument ---

type obs struct {
	inflight int
	method   string
	route    string
	status   int
}

func (o *obs) InFlight() func() {
	o.inflight++
	return func() { o.inflight-- }
}

func (o *obs) ObserveHTTP(method, route string, status int, _ time.Duration) {
	o.method, o.route, o.status = method, route, status
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	o := &obs{}
	r := chi.NewRouter()
	r.Use(Instrument(o))
	r.Get("/owners/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, 1, o.inflight)
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), makeReq("/owners/"+uuid.NewString()))

	require.Equal(t, http.MethodGet, o.method)
	require.Equal(t, "/owners/{id}", o.route)
	require.Equal(t, http.StatusAccepted, o.status)
	require.Zero(t, o.inflight)
}
