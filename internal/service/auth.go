package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/federation"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/redact"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
	"github.com/pribylovaa/go-tourism-gateway/internal/token"
)

// SignIn выполняет вход по email и паролю.
// Неизвестный email и неверный пароль неразличимы для вызывающего.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "service.auth.SignIn"

	lg := log.From(ctx)

	normEmail, err := normalizeEmail(email)
	if err != nil || password == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	acc, err := readWithRetry(ctx, s, op, func(ctx context.Context) (*models.Account, error) {
		return s.accounts.AccountByEmail(ctx, normEmail)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Dummy(password)
			lg.Info("sign_in_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
				slog.String("reason", "unknown_email"),
			)
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("sign_in_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	if !acc.HasPassword() {
		s.hasher.Dummy(password)
		lg.Info("sign_in_failed",
			slog.String("op", op),
			slog.String("account_id", acc.ID.String()),
			slog.String("reason", "federated_only"),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	ok, err := s.hasher.Compare(password, *acc.PasswordHash)
	if err != nil {
		lg.Error("password_compare_failed",
			slog.String("op", op),
			slog.String("account_id", acc.ID.String()),
			slog.String("err", err.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrCredentialSystem)
	}

	if !ok {
		lg.Info("sign_in_failed",
			slog.String("op", op),
			slog.String("account_id", acc.ID.String()),
			slog.String("reason", "password_mismatch"),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issue(acc)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.cfg.SignInAccessOnly {
		pair.RefreshToken = ""
		pair.RefreshExpiresAt = time.Time{}
	}

	lg.Info("sign_in_succeeded",
		slog.String("op", op),
		slog.String("account_id", acc.ID.String()),
	)

	return pair, nil
}

// Refresh выпускает новую пару токенов по refresh-токену с текущими
// ролью и email аккаунта.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "service.auth.Refresh"

	sub, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := readWithRetry(ctx, s, op, func(ctx context.Context) (*models.Account, error) {
		return s.accounts.AccountByID(ctx, sub)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Info("refresh_subject_gone",
				slog.String("op", op),
				slog.String("account_id", sub.String()),
			)
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, token.ErrInvalidToken)
		}

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	pair, err := s.issue(acc)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// AuthenticateFederated входит по Google ID Token. Аккаунт ищется строго
// по google id; при отсутствии создаётся новый. Слияния по email нет.
func (s *Service) AuthenticateFederated(ctx context.Context, assertion string) (models.TokenPair, error) {
	const op = "service.auth.AuthenticateFederated"

	lg := log.From(ctx)

	if s.google == nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrFederationDisabled)
	}

	claims, err := s.google.Verify(ctx, assertion)
	if err != nil {
		if errors.Is(err, federation.ErrKeysUnavailable) {
			lg.Error("federated_keys_unavailable",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrFederationUnavailable)
		}

		lg.Info("federated_assertion_rejected",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := s.checkAssertion(claims); err != nil {
		lg.Info("federated_assertion_incomplete",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := readWithRetry(ctx, s, op, func(ctx context.Context) (*models.Account, error) {
		return s.accounts.AccountByGoogleID(ctx, claims.Subject)
	})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		acc, err = s.createFederated(ctx, claims)
		if err != nil {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	pair, err := s.issue(acc)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (s *Service) checkAssertion(c *models.FederatedClaims) error {
	var missing []string
	if strings.TrimSpace(c.Subject) == "" {
		missing = append(missing, "sub")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.GivenName) == "" {
		missing = append(missing, "given_name")
	}
	if strings.TrimSpace(c.FamilyName) == "" {
		missing = append(missing, "family_name")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIdentityAssertionIncomplete, strings.Join(missing, ", "))
	}

	if !c.EmailVerified && !s.cfg.AllowUnverifiedEmail {
		return fmt.Errorf("%w: email not verified", ErrIdentityAssertionIncomplete)
	}

	return nil
}

func (s *Service) createFederated(ctx context.Context, c *models.FederatedClaims) (*models.Account, error) {
	const op = "service.auth.createFederated"

	googleID := c.Subject
	now := s.now()

	acc := &models.Account{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(c.GivenName) + " " + strings.TrimSpace(c.FamilyName),
		Email:     strings.ToLower(strings.TrimSpace(c.Email)),
		GoogleID:  &googleID,
		Role:      models.RoleStandard,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.accounts.SaveAccount(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			log.From(ctx).Warn("federated_account_conflict",
				slog.String("op", op),
				slog.String("email", redact.Email(acc.Email)),
			)
		}

		return nil, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	log.From(ctx).Info("federated_account_created",
		slog.String("op", op),
		slog.String("account_id", acc.ID.String()),
	)

	return acc, nil
}

func (s *Service) issue(acc *models.Account) (models.TokenPair, error) {
	const op = "service.auth.issue"

	pair, err := s.tokens.Issue(acc.ID, acc.Role, acc.Email)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}
