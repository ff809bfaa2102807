package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
)

// Имена таблиц берутся только из этого списка, не из пользовательского ввода.
var listingTables = map[models.ListingKind]string{
	models.KindPlaces:         "places",
	models.KindEvents:         "events",
	models.KindRestaurants:    "restaurants",
	models.KindAccommodations: "accommodations",
	models.KindActivities:     "activities",
}

func listingTable(kind models.ListingKind) (string, error) {
	table, ok := listingTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown listing kind %q: %w", kind, storage.ErrNotFound)
	}

	return table, nil
}

// Listing возвращает объявление категории kind.
func (s *Storage) Listing(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error) {
	const op = "storage.postgres.Listing"

	table, err := listingTable(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
        SELECT id, owner_id, name, created_at, updated_at, deleted_at
        FROM ` + table + `
        WHERE id = $1 AND deleted_at IS NULL
    `

	l := models.Listing{Kind: kind}
	err = s.db.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.OwnerID,
		&l.Name,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.DeletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return &l, nil
}

// ListingOwner возвращает владельца объявления.
func (s *Storage) ListingOwner(ctx context.Context, kind models.ListingKind, id uuid.UUID) (uuid.UUID, error) {
	const op = "storage.postgres.ListingOwner"

	table, err := listingTable(kind)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var owner uuid.UUID
	err = s.db.QueryRow(ctx,
		`SELECT owner_id FROM `+table+` WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&owner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return owner, nil
}

// DeleteListing мягко удаляет объявление.
func (s *Storage) DeleteListing(ctx context.Context, kind models.ListingKind, id uuid.UUID, at time.Time) error {
	const op = "storage.postgres.DeleteListing"

	table, err := listingTable(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE `+table+` SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
