package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
)

const accountColumns = `id, name, email, password_hash, google_id, role, created_at, updated_at, deleted_at`

// SaveAccount создаёт новый аккаунт.
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.SaveAccount"

	if err := account.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
        INSERT INTO accounts(id, name, email, password_hash, google_id, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := s.db.Exec(ctx, query,
		account.ID,
		account.Name,
		strings.ToLower(account.Email),
		account.PasswordHash,
		account.GoogleID,
		string(account.Role),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	return nil
}

// AccountByID находит аккаунт по ID.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.postgres.AccountByID"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`

	account, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return account, nil
}

// AccountByEmail находит аккаунт по email без учёта регистра.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1) AND deleted_at IS NULL`

	account, err := scanAccount(s.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return account, nil
}

// AccountByGoogleID находит аккаунт по идентификатору Google.
func (s *Storage) AccountByGoogleID(ctx context.Context, googleID string) (*models.Account, error) {
	const op = "storage.postgres.AccountByGoogleID"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE google_id = $1 AND deleted_at IS NULL`

	account, err := scanAccount(s.db.QueryRow(ctx, query, googleID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return account, nil
}

// UpdateAccount перезаписывает профиль; UpdatedAt берётся из аккаунта.
func (s *Storage) UpdateAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.UpdateAccount"

	query := `
        UPDATE accounts
        SET name = $2, email = $3, password_hash = $4, updated_at = $5
        WHERE id = $1 AND deleted_at IS NULL
    `

	tag, err := s.db.Exec(ctx, query,
		account.ID,
		account.Name,
		strings.ToLower(account.Email),
		account.PasswordHash,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SetRole меняет роль аккаунта.
func (s *Storage) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	const op = "storage.postgres.SetRole"

	query := `
        UPDATE accounts
        SET role = $2, updated_at = now()
        WHERE id = $1 AND deleted_at IS NULL
    `

	tag, err := s.db.Exec(ctx, query, id, string(role))
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteAccount мягко удаляет аккаунт.
func (s *Storage) DeleteAccount(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "storage.postgres.DeleteAccount"

	query := `
        UPDATE accounts
        SET deleted_at = $2, updated_at = $2
        WHERE id = $1 AND deleted_at IS NULL
    `

	tag, err := s.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		a    models.Account
		role string
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.GoogleID,
		&role,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Role = models.Role(role)

	return &a, nil
}
