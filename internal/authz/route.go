package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

// AuthMode — режим аутентификации маршрута.
type AuthMode int

const (
	// Public — маршрут доступен анонимно.
	Public AuthMode = iota
	// Protected — маршрут требует действительный access-токен.
	Protected
)

func (m AuthMode) String() string {
	if m == Protected {
		return "protected"
	}

	return "public"
}

// OwnerLoader возвращает владельца ресурса. Отсутствие ресурса сообщается
// через storage.ErrNotFound, недоступность хранилища — через storage.ErrUnavailable.
type OwnerLoader interface {
	OwnerOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// OwnerLoaderFunc — адаптер функции к OwnerLoader.
type OwnerLoaderFunc func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

func (f OwnerLoaderFunc) OwnerOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return f(ctx, id)
}

// ResourceRule описывает проверку владения: из какого параметра пути
// брать идентификатор и как загрузить владельца.
type ResourceRule struct {
	Param  string
	Owners OwnerLoader
}

// Route — метаданные авторизации, прикреплённые к маршруту при регистрации.
type Route struct {
	Name     string
	Auth     AuthMode
	MinRole  models.Role
	Resource *ResourceRule
}

// Params возвращает значение параметра пути по имени.
type Params func(name string) string
