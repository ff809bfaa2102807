package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
)

// SignUp регистрирует владельца с паролем. Уникальность email проверяет
// только индекс БД, без предварительного поиска.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*models.Account, error) {
	const op = "service.accounts.SignUp"

	name, err := validateName(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normEmail, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrCredentialSystem, err)
	}

	now := s.now()
	acc := &models.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        normEmail,
		PasswordHash: &hash,
		Role:         models.RoleStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	log.From(ctx).Info("account_created",
		slog.String("op", op),
		slog.String("account_id", acc.ID.String()),
	)

	return acc, nil
}

// Account возвращает аккаунт по ID.
func (s *Service) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "service.accounts.Account"

	acc, err := readWithRetry(ctx, s, op, func(ctx context.Context) (*models.Account, error) {
		return s.accounts.AccountByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	return acc, nil
}

// UpdateAccount применяет частичное обновление профиля. Пустой патч
// возвращает аккаунт без записи в хранилище.
func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, patch models.AccountPatch) (*models.Account, error) {
	const op = "service.accounts.UpdateAccount"

	acc, err := s.Account(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Name == nil && patch.Email == nil && patch.Password == nil {
		return acc, nil
	}

	if patch.Name != nil {
		if acc.Name, err = validateName(*patch.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if patch.Email != nil {
		if acc.Email, err = normalizeEmail(*patch.Email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrCredentialSystem, err)
		}
		acc.PasswordHash = &hash
	}

	acc.UpdatedAt = s.now()

	if err := s.accounts.UpdateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	return acc, nil
}

// DeleteAccount мягко удаляет аккаунт; выпущенные токены доживают свой срок,
// но обновить их уже нельзя.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	const op = "service.accounts.DeleteAccount"

	if err := s.accounts.DeleteAccount(ctx, id, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, storageErr(err))
	}

	log.From(ctx).Info("account_deleted",
		slog.String("op", op),
		slog.String("account_id", id.String()),
	)

	return nil
}

// SetRole меняет роль аккаунта; новая роль попадёт в токены при следующем обновлении.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	const op = "service.accounts.SetRole"

	r, err := models.ParseRole(role)
	if err != nil {
		return fmt.Errorf("%s: %w: role must be standard or admin", op, ErrInvalidArgument)
	}

	if err := s.accounts.SetRole(ctx, id, r); err != nil {
		return fmt.Errorf("%s: %w", op, storageErr(err))
	}

	log.From(ctx).Info("account_role_changed",
		slog.String("op", op),
		slog.String("account_id", id.String()),
		slog.String("role", r.String()),
	)

	return nil
}

// AccountOwner — загрузчик владельца для маршрутов над аккаунтами:
// аккаунт принадлежит самому себе. Ошибки остаются ошибками хранилища.
func (s *Service) AccountOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const op = "service.accounts.AccountOwner"

	acc, err := readWithRetry(ctx, s, op, func(ctx context.Context) (*models.Account, error) {
		return s.accounts.AccountByID(ctx, id)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc.ID, nil
}
