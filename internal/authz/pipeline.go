// authz — многоступенчатая проверка доступа к маршрутам.
//
// Каждый запрос к маршруту проходит фиксированную цепочку проверок:
//
//	RouteAuthMode → TokenPresence → TokenVerification → RoleCheck → OwnershipCheck
//
// Проверка возвращает Result с исходом Pass, Skip или Fail; первый Fail
// останавливает цепочку, а публичный маршрут завершает её сразу после первой.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
)

// Stage — имя проверки в цепочке.
type Stage string

const (
	StageRouteAuthMode     Stage = "route_auth_mode"
	StageTokenPresence     Stage = "token_presence"
	StageTokenVerification Stage = "token_verification"
	StageRoleCheck         Stage = "role_check"
	StageOwnershipCheck    Stage = "ownership_check"
)

// Outcome — исход отдельной проверки.
type Outcome int

const (
	Pass Outcome = iota
	Skip
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Skip:
		return "skip"
	default:
		return "fail"
	}
}

// Result — результат проверки; Err задан только при Fail.
type Result struct {
	Outcome Outcome
	Err     error
}

func pass() Result          { return Result{Outcome: Pass} }
func skip() Result          { return Result{Outcome: Skip} }
func fail(err error) Result { return Result{Outcome: Fail, Err: err} }

// Decision — итог авторизации. Identity пуст для анонимного доступа.
type Decision struct {
	Identity  *models.Identity
	Anonymous bool
	Stage     Stage
}

// TokenVerifier проверяет access-токен.
type TokenVerifier interface {
	VerifyAccess(raw string) (models.Identity, error)
}

// Recorder считает решения авторизации.
type Recorder interface {
	AuthzDecision(route string, stage string, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthzDecision(string, string, string) {}

// request — состояние одного прохода цепочки.
type request struct {
	route    Route
	header   string
	params   Params
	raw      string
	identity *models.Identity
	done     bool
}

type check struct {
	stage Stage
	run   func(ctx context.Context, r *request) Result
}

// Pipeline неизменяем после создания и безопасен для конкурентного использования.
type Pipeline struct {
	verifier TokenVerifier
	recorder Recorder
	checks   []check
}

// Option настраивает Pipeline.
type Option func(*Pipeline)

// WithRecorder подключает учёт решений (метрики).
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New собирает цепочку проверок.
func New(verifier TokenVerifier, opts ...Option) *Pipeline {
	p := &Pipeline{verifier: verifier, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(p)
	}

	p.checks = []check{
		{stage: StageRouteAuthMode, run: p.routeAuthMode},
		{stage: StageTokenPresence, run: p.tokenPresence},
		{stage: StageTokenVerification, run: p.tokenVerification},
		{stage: StageRoleCheck, run: p.roleCheck},
		{stage: StageOwnershipCheck, run: p.ownershipCheck},
	}

	return p
}

// Authorize прогоняет запрос через цепочку проверок.
// header — значение заголовка Authorization, params — параметры пути.
func (p *Pipeline) Authorize(ctx context.Context, route Route, header string, params Params) (Decision, error) {
	const op = "authz.Authorize"

	if params == nil {
		params = func(string) string { return "" }
	}

	r := &request{route: route, header: header, params: params}

	var last Stage
	for _, c := range p.checks {
		last = c.stage

		res := c.run(ctx, r)
		if res.Outcome == Fail {
			p.recorder.AuthzDecision(route.Name, string(c.stage), Fail.String())

			log.From(ctx).Debug("authz_denied",
				slog.String("op", op),
				slog.String("route", route.Name),
				slog.String("stage", string(c.stage)),
				slog.String("err", res.Err.Error()),
			)

			return Decision{Stage: c.stage}, fmt.Errorf("%s: %s: %w", op, c.stage, res.Err)
		}

		if r.done {
			break
		}
	}

	p.recorder.AuthzDecision(route.Name, string(last), Pass.String())

	return Decision{Identity: r.identity, Anonymous: r.identity == nil, Stage: last}, nil
}

func (p *Pipeline) routeAuthMode(_ context.Context, r *request) Result {
	if r.route.Auth == Public {
		r.done = true
	}

	return pass()
}

func (p *Pipeline) tokenPresence(_ context.Context, r *request) Result {
	raw, ok := BearerToken(r.header)
	if !ok {
		return fail(ErrUnauthenticated)
	}

	r.raw = raw

	return pass()
}

func (p *Pipeline) tokenVerification(_ context.Context, r *request) Result {
	id, err := p.verifier.VerifyAccess(r.raw)
	if err != nil {
		return fail(err)
	}

	r.identity = &id

	return pass()
}

func (p *Pipeline) roleCheck(ctx context.Context, r *request) Result {
	if r.route.MinRole == "" {
		return skip()
	}

	// Без идентичности проверка роли пропускает запрос.
	if r.identity == nil {
		log.From(ctx).Warn("role_check_without_identity",
			slog.String("op", "authz.roleCheck"),
			slog.String("route", r.route.Name),
		)
		return pass()
	}

	if !r.identity.Role.AtLeast(r.route.MinRole) {
		return fail(ErrForbidden)
	}

	return pass()
}

func (p *Pipeline) ownershipCheck(ctx context.Context, r *request) Result {
	rule := r.route.Resource
	if rule == nil || rule.Owners == nil {
		return skip()
	}

	id, err := uuid.Parse(r.params(rule.Param))
	if err != nil {
		return fail(ErrMalformedID)
	}

	owner, err := rule.Owners.OwnerOf(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		return fail(ErrNotFound)
	default:
		return fail(fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	if r.identity == nil {
		return fail(ErrUnauthenticated)
	}

	// Администратор обходит проверку владения, но не проверку существования.
	if r.identity.IsAdmin() {
		return pass()
	}

	if owner != r.identity.Subject {
		return fail(ErrForbidden)
	}

	return pass()
}

// BearerToken извлекает токен из заголовка Authorization.
// Схема сравнивается без учёта регистра.
func BearerToken(header string) (string, bool) {
	const bearer = "bearer "

	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}

	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}

	return raw, true
}
