package triprepo

import (
	"context"
	"time"

	"github.com/travelplan/itinerary-api/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
type Trip struct {
	ID    domain.TripID
	Owner domain.SubjectID
	Name  string

	// Cities is stored as an opaque document (jsonb in postgres, text in sqlite).
	Cities []domain.CityEntry

	// StartDate has date-only semantics; nil means unset.
	StartDate *time.Time
	// DayBudget is persisted under the historical column name total_days.
	DayBudget *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted trips.
//
// Save is a whole-snapshot overwrite; the last write wins.
type Repository interface {
	Create(ctx context.Context, t Trip) error
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)

	// ListByOwner returns the owner's trips ordered by UpdatedAt descending, ties by ID.
	ListByOwner(ctx context.Context, owner domain.SubjectID) ([]Trip, error)

	Delete(ctx context.Context, id domain.TripID) error
}
