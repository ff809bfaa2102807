package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

var (
	// ErrNotFound — запись не найдена или мягко удалена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/google id).
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable — хранилище недоступно (таймаут, обрыв соединения).
	ErrUnavailable = errors.New("storage unavailable")
)

// AccountStorage выполняет операции над аккаунтами владельцев.
// Все выборки игнорируют мягко удалённые записи.
type AccountStorage interface {
	// SaveAccount создаёт аккаунт; дубль email/google id -> ErrAlreadyExists.
	SaveAccount(ctx context.Context, account *models.Account) error
	// AccountByID находит аккаунт по ID.
	AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// AccountByEmail находит аккаунт по email (без учёта регистра).
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// AccountByGoogleID находит аккаунт строго по идентификатору Google.
	AccountByGoogleID(ctx context.Context, googleID string) (*models.Account, error)
	// UpdateAccount перезаписывает имя, email и хэш пароля.
	UpdateAccount(ctx context.Context, account *models.Account) error
	// SetRole меняет роль аккаунта.
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) error
	// DeleteAccount помечает аккаунт удалённым.
	DeleteAccount(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ListingStorage — отношение владения объявлениями.
type ListingStorage interface {
	// Listing возвращает объявление категории kind.
	Listing(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error)
	// ListingOwner возвращает владельца объявления.
	ListingOwner(ctx context.Context, kind models.ListingKind, id uuid.UUID) (uuid.UUID, error)
	// DeleteListing помечает объявление удалённым.
	DeleteListing(ctx context.Context, kind models.ListingKind, id uuid.UUID, at time.Time) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	AccountStorage
	ListingStorage
	Ping(ctx context.Context) error
	Close()
}
