// token выпускает и проверяет подписанные токены доступа и обновления.
//
// Оба вида — компактный JWS (HS256) с общим секретом. Вид токена задаётся
// JOSE-заголовком typ: access — "at+jwt", refresh — "rt+jwt", поэтому
// refresh-токен нельзя предъявить вместо access-токена и наоборот.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

const (
	typAccess  = "at+jwt"
	typRefresh = "rt+jwt"
)

var (
	// ErrInvalidToken — подпись, алгоритм, вид, издатель, аудитория или
	// полезная нагрузка не прошли проверку.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия истёк; клиенту стоит обновить токен.
	ErrTokenExpired = errors.New("token expired")
)

// Config — параметры выпуска и проверки.
type Config struct {
	Secret     []byte
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Manager неизменяем после создания и безопасен для конкурентного использования.
type Manager struct {
	cfg Config
	now func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager проверяет конфигурацию и создаёт Manager.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	const op = "token.NewManager"

	switch {
	case len(cfg.Secret) == 0:
		return nil, fmt.Errorf("%s: empty signing secret", op)
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, fmt.Errorf("%s: ttl must be positive", op)
	case cfg.Leeway < 0:
		return nil, fmt.Errorf("%s: negative leeway", op)
	}

	m := &Manager{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

// Issue выпускает пару токенов для аккаунта.
func (m *Manager) Issue(accountID uuid.UUID, role models.Role, email string) (models.TokenPair, error) {
	const op = "token.Issue"

	if accountID == uuid.Nil {
		return models.TokenPair{}, fmt.Errorf("%s: empty subject", op)
	}

	now := m.now().UTC()
	accessExp := now.Add(m.cfg.AccessTTL)
	refreshExp := now.Add(m.cfg.RefreshTTL)

	access, err := m.sign(typAccess, accessClaims{
		Email:            email,
		Role:             string(role),
		RegisteredClaims: m.registered(accountID, now, accessExp),
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := m.sign(typRefresh, refreshClaims{
		RegisteredClaims: m.registered(accountID, now, refreshExp),
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess проверяет access-токен и возвращает идентичность.
func (m *Manager) VerifyAccess(raw string) (models.Identity, error) {
	const op = "token.VerifyAccess"

	var claims accessClaims
	if err := m.parse(raw, typAccess, &claims); err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return models.Identity{Subject: sub, Email: claims.Email, Role: role}, nil
}

// VerifyRefresh проверяет refresh-токен и возвращает субъекта.
func (m *Manager) VerifyRefresh(raw string) (uuid.UUID, error) {
	const op = "token.VerifyRefresh"

	var claims refreshClaims
	if err := m.parse(raw, typRefresh, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return sub, nil
}

func (m *Manager) registered(sub uuid.UUID, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   sub.String(),
		Issuer:    m.cfg.Issuer,
		Audience:  jwt.ClaimStrings(m.cfg.Audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (m *Manager) sign(typ string, claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["typ"] = typ

	return t.SignedString(m.cfg.Secret)
}

func (m *Manager) parse(raw, typ string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.cfg.Leeway),
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if len(m.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience...))
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if got, _ := t.Header["typ"].(string); got != typ {
			return nil, fmt.Errorf("unexpected token type %q", got)
		}

		return m.cfg.Secret, nil
	}, opts...)

	return classify(err)
}

// classify сводит ошибки jwt к двум сентинелам. Истечение срока
// отличается от прочих ошибок, только если других нарушений нет.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrInvalidToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrInvalidToken
	}
}
