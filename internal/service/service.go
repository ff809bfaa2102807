// service содержит бизнес-логику шлюза аутентификации:
// вход по паролю и через Google, обновление токенов, управление
// аккаунтами владельцев и загрузку владельцев ресурсов для авторизации.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования, если безопасны переданные зависимости.
//   - Ошибки слоя хранения переводятся в ошибки сервиса; транспорт
//     маппит их на HTTP-статусы (см. комментарии к переменным ниже).
//   - Чтения при недоступности хранилища повторяются один раз; записи не повторяются.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
)

var (
	// ErrInvalidCredentials — неверная пара email/пароль, неизвестный email
	// или недействительное утверждение провайдера. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIdentityAssertionIncomplete — в утверждении Google нет sub, email
	// или имени, либо email не подтверждён. HTTP 403.
	ErrIdentityAssertionIncomplete = errors.New("identity assertion incomplete")

	// ErrConflictingAccount — email или google id уже принадлежит другому аккаунту. HTTP 409.
	ErrConflictingAccount = errors.New("conflicting account")

	// ErrNotFound — аккаунт или объявление не найдено. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable — хранилище аккаунтов недоступно. HTTP 503.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCredentialSystem — сбой проверки пароля (битый хэш и т.п.). HTTP 503.
	ErrCredentialSystem = errors.New("credential system unavailable")

	// ErrFederationUnavailable — ключи провайдера идентичности недоступны. HTTP 503.
	ErrFederationUnavailable = errors.New("identity provider unavailable")

	// ErrFederationDisabled — вход через Google не сконфигурирован. HTTP 404.
	ErrFederationDisabled = errors.New("federated sign-in is disabled")

	// ErrInvalidArgument — входные данные не прошли валидацию. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Hasher хэширует и сверяет пароли.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) (bool, error)
	// Dummy тратит столько же времени, сколько Compare, и ничего не проверяет.
	Dummy(plaintext string)
}

// Tokens выпускает пары токенов и проверяет refresh-токены.
type Tokens interface {
	Issue(accountID uuid.UUID, role models.Role, email string) (models.TokenPair, error)
	VerifyRefresh(raw string) (uuid.UUID, error)
}

// FederatedVerifier проверяет утверждение внешнего провайдера идентичности.
type FederatedVerifier interface {
	Verify(ctx context.Context, assertion string) (*models.FederatedClaims, error)
}

// Config — параметры поведения сервиса.
type Config struct {
	// SignInAccessOnly — вход по паролю возвращает только access-токен.
	SignInAccessOnly bool
	// AllowUnverifiedEmail — принимать утверждения Google с email_verified=false.
	AllowUnverifiedEmail bool
	// ReadRetryDelay — пауза перед повтором чтения; 0 -> 50ms.
	ReadRetryDelay time.Duration
}

// Service описывает бизнес-логику шлюза.
type Service struct {
	accounts storage.AccountStorage
	listings storage.ListingStorage
	hasher   Hasher
	tokens   Tokens
	cfg      Config
	google   FederatedVerifier // nil, если вход через Google не сконфигурирован
	now      func() time.Time
}

// New создаёт новый экземпляр Service.
func New(accounts storage.AccountStorage, listings storage.ListingStorage, hasher Hasher, tokens Tokens, cfg Config) *Service {
	if cfg.ReadRetryDelay <= 0 {
		cfg.ReadRetryDelay = 50 * time.Millisecond
	}

	return &Service{
		accounts: accounts,
		listings: listings,
		hasher:   hasher,
		tokens:   tokens,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetFederatedVerifier подключает проверку утверждений Google (опционально).
func (s *Service) SetFederatedVerifier(v FederatedVerifier) {
	s.google = v
}

// readWithRetry выполняет чтение и при недоступности хранилища повторяет
// его один раз после паузы.
func readWithRetry[T any](ctx context.Context, s *Service, op string, read func(context.Context) (T, error)) (T, error) {
	v, err := read(ctx)
	if err == nil || !errors.Is(err, storage.ErrUnavailable) {
		return v, err
	}

	log.From(ctx).Warn("store_read_retry",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)

	t := time.NewTimer(s.cfg.ReadRetryDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		var zero T
		return zero, err
	case <-t.C:
	}

	return read(ctx)
}

// storageErr переводит ошибки хранилища в ошибки сервиса.
func storageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return ErrConflictingAccount
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
