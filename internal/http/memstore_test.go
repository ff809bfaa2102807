package http

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
)

// memStore — хранилище в памяти с семантикой postgres-реализации:
// уникальность email/google id среди неудалённых, мягкое удаление, копии на выходе.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]models.Account
	listings map[models.ListingKind]map[uuid.UUID]models.Listing
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uuid.UUID]models.Account),
		listings: make(map[models.ListingKind]map[uuid.UUID]models.Listing),
	}
}

func (s *memStore) conflict(a *models.Account) bool {
	for id, other := range s.accounts {
		if id == a.ID || other.DeletedAt != nil {
			continue
		}
		if strings.EqualFold(other.Email, a.Email) {
			return true
		}
		if a.GoogleID != nil && other.GoogleID != nil && *a.GoogleID == *other.GoogleID {
			return true
		}
	}
	return false
}

func (s *memStore) SaveAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflict(a) {
		return storage.ErrAlreadyExists
	}
	s.accounts[a.ID] = *a
	return nil
}

func (s *memStore) find(match func(models.Account) bool) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.DeletedAt == nil && match(a) {
			out := a
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) AccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return s.find(func(a models.Account) bool { return a.ID == id })
}

func (s *memStore) AccountByEmail(_ context.Context, email string) (*models.Account, error) {
	return s.find(func(a models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *memStore) AccountByGoogleID(_ context.Context, gid string) (*models.Account, error) {
	return s.find(func(a models.Account) bool { return a.GoogleID != nil && *a.GoogleID == gid })
}

func (s *memStore) UpdateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.ID]
	if !ok || cur.DeletedAt != nil {
		return storage.ErrNotFound
	}
	if s.conflict(a) {
		return storage.ErrAlreadyExists
	}
	s.accounts[a.ID] = *a
	return nil
}

func (s *memStore) SetRole(_ context.Context, id uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.DeletedAt != nil {
		return storage.ErrNotFound
	}
	a.Role = role
	s.accounts[id] = a
	return nil
}

func (s *memStore) DeleteAccount(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.DeletedAt != nil {
		return storage.ErrNotFound
	}
	a.DeletedAt = &at
	s.accounts[id] = a
	return nil
}

func (s *memStore) putListing(kind models.ListingKind, owner uuid.UUID) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listings[kind] == nil {
		s.listings[kind] = make(map[uuid.UUID]models.Listing)
	}
	l := models.Listing{ID: uuid.New(), Kind: kind, OwnerID: owner, Name: "Musée d'Orsay", CreatedAt: time.Now().UTC()}
	s.listings[kind][l.ID] = l
	return l.ID
}

func (s *memStore) Listing(_ context.Context, kind models.ListingKind, id uuid.UUID) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[kind][id]
	if !ok || l.DeletedAt != nil {
		return nil, storage.ErrNotFound
	}
	return &l, nil
}

func (s *memStore) ListingOwner(ctx context.Context, kind models.ListingKind, id uuid.UUID) (uuid.UUID, error) {
	l, err := s.Listing(ctx, kind, id)
	if err != nil {
		return uuid.Nil, err
	}
	return l.OwnerID, nil
}

func (s *memStore) DeleteListing(_ context.Context, kind models.ListingKind, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[kind][id]
	if !ok || l.DeletedAt != nil {
		return storage.ErrNotFound
	}
	l.DeletedAt = &at
	s.listings[kind][id] = l
	return nil
}
