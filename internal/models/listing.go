package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingKind — категория туристического объявления. Значение совпадает
// с сегментом пути и именем таблицы.
type ListingKind string

const (
	KindPlaces         ListingKind = "places"
	KindEvents         ListingKind = "events"
	KindRestaurants    ListingKind = "restaurants"
	KindAccommodations ListingKind = "accommodations"
	KindActivities     ListingKind = "activities"
)

// ListingKinds — все поддерживаемые категории.
var ListingKinds = []ListingKind{
	KindPlaces,
	KindEvents,
	KindRestaurants,
	KindAccommodations,
	KindActivities,
}

// Valid — категория известна.
func (k ListingKind) Valid() bool {
	for _, v := range ListingKinds {
		if v == k {
			return true
		}
	}

	return false
}

// Listing — минимальное представление объявления: только то, что нужно
// для проверки владения. Бизнес-поля принадлежат сервисам объявлений.
type Listing struct {
	ID        uuid.UUID
	Kind      ListingKind
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
