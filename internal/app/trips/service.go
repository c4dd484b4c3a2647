package trips

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/clock"
	"github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

// Service owns trip persistence. Every operation is scoped to the calling owner:
// a trip that exists but belongs to someone else is reported as not found.
type Service struct {
	trips triprepo.Repository
	clock clock.Clock

	newTripID func() domain.TripID
}

func NewService(tripsRepo triprepo.Repository, clk clock.Clock) *Service {
	return &Service{
		trips: tripsRepo,
		clock: clk,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

func (s *Service) CreateTrip(ctx context.Context, owner domain.SubjectID, in CreateTripInput) (domain.Trip, error) {
	now := s.clock.Now().UTC()
	t := domain.Trip{
		ID:        s.newTripID(),
		Owner:     owner,
		Name:      domain.NormalizeTripName(in.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}.WithStartDate(in.StartDate)

	t, err := t.WithDayBudget(in.DayBudget)
	if err != nil {
		return domain.Trip{}, ValidationError("invalid dayBudget", map[string]any{"dayBudget": "must be >= 1"})
	}

	if err := s.trips.Create(ctx, toRecord(t)); err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return domain.Trip{}, &Error{Status: http.StatusConflict, Code: "TRIP_ID_CONFLICT", Message: "trip id conflict"}
		}
		return domain.Trip{}, err
	}
	return t, nil
}

// ListMyTrips returns the owner's trips, most recently updated first.
func (s *Service) ListMyTrips(ctx context.Context, owner domain.SubjectID) ([]domain.TripSummary, error) {
	ts, err := s.trips.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TripSummary, 0, len(ts))
	for _, t := range ts {
		out = append(out, domain.TripSummary{ID: t.ID, Name: t.Name, UpdatedAt: t.UpdatedAt})
	}
	return out, nil
}

func (s *Service) GetTrip(ctx context.Context, owner domain.SubjectID, id domain.TripID) (domain.Trip, error) {
	rec, err := s.getOwned(ctx, owner, id)
	if err != nil {
		return domain.Trip{}, err
	}
	return fromRecord(rec)
}

// SaveTrip overwrites the stored snapshot of t (last write wins) and returns it
// with the new UpdatedAt.
func (s *Service) SaveTrip(ctx context.Context, owner domain.SubjectID, t domain.Trip) (domain.Trip, error) {
	existing, err := s.getOwned(ctx, owner, t.ID)
	if err != nil {
		return domain.Trip{}, err
	}
	t.Owner = existing.Owner
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.clock.Now().UTC()
	if err := s.trips.Save(ctx, toRecord(t)); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, NotFoundError()
		}
		return domain.Trip{}, err
	}
	return t, nil
}

func (s *Service) DeleteTrip(ctx context.Context, owner domain.SubjectID, id domain.TripID) error {
	if _, err := s.getOwned(ctx, owner, id); err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return NotFoundError()
		}
		return err
	}
	return nil
}

// ApplyUpdate applies a partial update to t without persisting it.
func ApplyUpdate(t domain.Trip, in UpdateTripInput) (domain.Trip, error) {
	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.Trip{}, ValidationError("invalid name", map[string]any{"name": "cannot be null"})
		}
		t = t.WithName(in.Name.Value())
	}

	if in.StartDate.IsSpecified() {
		if in.StartDate.IsNull() {
			t = t.WithStartDate(nil)
		} else {
			v := in.StartDate.Value()
			t = t.WithStartDate(&v)
		}
	}

	if in.DayBudget.IsSpecified() {
		var budget *int
		if !in.DayBudget.IsNull() {
			v := in.DayBudget.Value()
			budget = &v
		}
		next, err := t.WithDayBudget(budget)
		if err != nil {
			return domain.Trip{}, ValidationError("invalid dayBudget", map[string]any{"dayBudget": "must be >= 1"})
		}
		t = next
	}
	return t, nil
}

func (s *Service) getOwned(ctx context.Context, owner domain.SubjectID, id domain.TripID) (triprepo.Trip, error) {
	rec, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, NotFoundError()
		}
		return triprepo.Trip{}, err
	}
	if rec.Owner != owner {
		// Foreign trips are indistinguishable from missing ones.
		return triprepo.Trip{}, NotFoundError()
	}
	return rec, nil
}

func toRecord(t domain.Trip) triprepo.Trip {
	return triprepo.Trip{
		ID:        t.ID,
		Owner:     t.Owner,
		Name:      t.Name,
		Cities:    t.Itinerary.Cities(),
		StartDate: t.Config.StartDate,
		DayBudget: t.Config.DayBudget,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromRecord(rec triprepo.Trip) (domain.Trip, error) {
	it, err := domain.NewItinerary(rec.Cities)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("trip %s: decode cities: %w", rec.ID, err)
	}
	t := domain.Trip{
		ID:        rec.ID,
		Owner:     rec.Owner,
		Name:      rec.Name,
		Itinerary: it,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}.WithStartDate(rec.StartDate)

	// A stored budget below 1 predates validation; treat it as unset.
	if rec.DayBudget != nil && *rec.DayBudget >= 1 {
		v := *rec.DayBudget
		t.Config.DayBudget = &v
	}
	return t, nil
}
