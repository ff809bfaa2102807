package models

import "github.com/google/uuid"

// Identity — эфемерная идентичность, восстановленная из access-токена.
// Не хранится; живёт ровно столько, сколько действителен токен.
type Identity struct {
	Subject uuid.UUID
	Email   string
	Role    Role
}

// IsAdmin — сокращение для проверки обхода владения.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// FederatedClaims — проверенные утверждения стороннего провайдера (Google).
type FederatedClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}
