package models

import (
	"fmt"
	"strings"
)

// Role — роль владельца аккаунта. Роли образуют полный порядок (см. Level).
type Role string

const (
	// RoleStandard — обычный владелец объявлений.
	RoleStandard Role = "standard"
	// RoleAdmin — администратор, обходит проверку владения.
	RoleAdmin Role = "admin"
)

// Level возвращает уровень роли в иерархии: standard=1, admin=2.
// Неизвестная роль получает 0 и не проходит ни одну проверку минимальной роли.
func (r Role) Level() int {
	switch r {
	case RoleStandard:
		return 1
	case RoleAdmin:
		return 2
	default:
		return 0
	}
}

// AtLeast сообщает, достаточно ли роли r для маршрута с минимальной ролью min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() > 0 && r.Level() >= min.Level()
}

// Valid — роль входит в перечисление.
func (r Role) Valid() bool { return r.Level() > 0 }

func (r Role) String() string { return string(r) }

// ParseRole разбирает роль без учёта регистра.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}

	return r, nil
}
