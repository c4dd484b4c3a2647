package triprepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]triprepo.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]triprepo.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid for now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

// Save replaces the stored trip. Saving a trip that was deleted fails with
// ErrNotFound rather than resurrecting it.
func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		return triprepo.ErrNotFound
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return cloneTrip(t), nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.SubjectID) ([]triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]triprepo.Trip, 0)
	for _, t := range r.byID {
		if t.Owner == owner {
			out = append(out, cloneTrip(t))
		}
	}
	sortTrips(out)
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return triprepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func cloneTrip(t triprepo.Trip) triprepo.Trip {
	cp := t
	if t.Cities != nil {
		cp.Cities = make([]domain.CityEntry, len(t.Cities))
		for i, c := range t.Cities {
			cp.Cities[i] = cloneCity(c)
		}
	}
	cp.StartDate = cloneTimePtr(t.StartDate)
	cp.DayBudget = cloneIntPtr(t.DayBudget)
	return cp
}

// cloneCity must copy every pointer field of domain.CityEntry.
func cloneCity(c domain.CityEntry) domain.CityEntry {
	if c.CountryCode != nil {
		v := *c.CountryCode
		c.CountryCode = &v
	}
	if c.Coordinates != nil {
		v := *c.Coordinates
		c.Coordinates = &v
	}
	return c
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortTrips(ts []triprepo.Trip) {
	// Most recently updated first; ties by ID for determinism.
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return string(a.ID) < string(b.ID)
	})
}
