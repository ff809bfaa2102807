// federation проверяет утверждения внешнего провайдера идентичности
// (Google ID Token) и извлекает из них профиль пользователя.
package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

// ErrInvalidAssertion — подпись, издатель, аудитория или срок действия
// утверждения не прошли проверку.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// DefaultGoogleIssuers — допустимые значения iss у Google ID Token.
var DefaultGoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleConfig — параметры проверки Google ID Token.
type GoogleConfig struct {
	ClientID   string
	JWKSURL    string
	Issuers    []string
	Leeway     time.Duration
	HTTPClient *http.Client
}

// GoogleVerifier проверяет Google ID Token (RS256) по ключам провайдера.
// Создаётся один раз при старте и безопасен для конкурентного использования.
type GoogleVerifier struct {
	clientID string
	issuers  []string
	leeway   time.Duration
	keys     *keySet
	now      func() time.Time
}

// NewGoogleVerifier создаёт верификатор; ClientID обязателен.
func NewGoogleVerifier(cfg GoogleConfig) (*GoogleVerifier, error) {
	const op = "federation.NewGoogleVerifier"

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%s: empty client id", op)
	}

	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("%s: empty jwks url", op)
	}

	issuers := cfg.Issuers
	if len(issuers) == 0 {
		issuers = DefaultGoogleIssuers
	}

	return &GoogleVerifier{
		clientID: cfg.ClientID,
		issuers:  issuers,
		leeway:   cfg.Leeway,
		keys:     newKeySet(cfg.JWKSURL, cfg.HTTPClient),
		now:      time.Now,
	}, nil
}

type googleClaims struct {
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	GivenName     string   `json:"given_name"`
	FamilyName    string   `json:"family_name"`
	jwt.RegisteredClaims
}

// Verify проверяет ID Token и возвращает заявленный профиль. Полнота
// профиля (email, имя) здесь не проверяется: это решает вызывающий.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*models.FederatedClaims, error) {
	const op = "federation.GoogleVerifier.Verify"

	var claims googleClaims
	_, err := jwt.ParseWithClaims(idToken, &claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, ErrKeysUnavailable) {
			return nil, fmt.Errorf("%s: %w", op, ErrKeysUnavailable)
		}

		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidAssertion, err)
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%s: %w: unexpected issuer %q", op, ErrInvalidAssertion, claims.Issuer)
	}

	return &models.FederatedClaims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
	}, nil
}

// flexBool принимает как JSON-булево, так и строку "true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}

	*b = flexBool(v)

	return nil
}
