package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

// Listing возвращает объявление категории kind.
func (s *Service) Listing(ctx context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error) {
	const op = "service.listings.Listing"

	l, err := readWithRetry(ctx, s, op, func(ctx context.Context) (*models.Listing, error) {
		return s.listings.Listing(ctx, kind, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storageErr(err))
	}

	return l, nil
}

// DeleteListing мягко удаляет объявление. Владение проверяется до вызова.
func (s *Service) DeleteListing(ctx context.Context, kind models.ListingKind, id uuid.UUID) error {
	const op = "service.listings.DeleteListing"

	if err := s.listings.DeleteListing(ctx, kind, id, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, storageErr(err))
	}

	return nil
}

// ListingOwner возвращает загрузчик владельца для объявлений категории kind.
// Ошибки остаются ошибками хранилища.
func (s *Service) ListingOwner(kind models.ListingKind) func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const op = "service.listings.ListingOwner"

	return func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
		owner, err := readWithRetry(ctx, s, op, func(ctx context.Context) (uuid.UUID, error) {
			return s.listings.ListingOwner(ctx, kind, id)
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		return owner, nil
	}
}
