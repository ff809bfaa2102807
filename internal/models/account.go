package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoAuthMethod — у аккаунта нет ни пароля, ни федеративного идентификатора.
var ErrNoAuthMethod = errors.New("account has no authentication method")

// Account — владелец (долговременная запись идентичности).
//
// Инварианты:
//   - хотя бы одно из PasswordHash/GoogleID задано;
//   - Email хранится в нижнем регистре;
//   - удаление только мягкое (DeletedAt), чтобы объявления сохраняли ссылку на владельца.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash *string
	GoogleID     *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Validate проверяет инвариант способа аутентификации и роль.
func (a *Account) Validate() error {
	if a.PasswordHash == nil && a.GoogleID == nil {
		return ErrNoAuthMethod
	}

	if !a.Role.Valid() {
		return errors.New("account role is invalid")
	}

	return nil
}

// HasPassword — аккаунт может входить по паролю.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// Identity строит полезную нагрузку access-токена из аккаунта.
func (a *Account) Identity() Identity {
	return Identity{
		Subject: a.ID,
		Email:   a.Email,
		Role:    a.Role,
	}
}

// AccountPatch — частичное обновление профиля; nil-поля не меняются.
type AccountPatch struct {
	Name     *string
	Email    *string
	Password *string
}
