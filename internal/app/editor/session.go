// Package editor keeps one live editing session per open trip. Every change is
// applied in memory at once and written back after a quiet period, so a burst of
// edits costs a single write.
package editor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/travelplan/itinerary-api/internal/app/trips"
	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/platform/debounce"
)

// Status describes the persistence state of a session.
type Status struct {
	// Pending is true while a write is scheduled but has not started.
	Pending     bool
	LastSavedAt *time.Time
	// LastError is the message of the most recent failed write, cleared by the
	// next successful one.
	LastError string
}

// View is a consistent read of a session: the trip, its projection and save status.
type View struct {
	Trip     domain.Trip
	Timeline domain.Timeline
	Status   Status
}

// Session owns the working copy of one trip.
type Session struct {
	m     *Manager
	owner domain.SubjectID
	id    domain.TripID
	deb   *debounce.Debouncer

	mu          sync.Mutex
	trip        domain.Trip
	lastSavedAt *time.Time
	lastErr     string
	touched     time.Time
	closed      bool

	// writeMu serializes writes so an older snapshot never lands after a newer one.
	writeMu sync.Mutex
}

func newSession(m *Manager, t domain.Trip) *Session {
	s := &Session{
		m:       m,
		owner:   t.Owner,
		id:      t.ID,
		trip:    t,
		touched: m.clock.Now(),
	}
	s.deb = debounce.New(m.clock, m.opts.Delay, s.flushScheduled)
	return s
}

func (s *Session) ID() domain.TripID { return s.id }

// Snapshot returns the current working copy.
func (s *Session) Snapshot() domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trip
}

func (s *Session) View() View {
	s.mu.Lock()
	t := s.trip
	st := Status{LastSavedAt: s.lastSavedAt, LastError: s.lastErr}
	s.mu.Unlock()

	st.Pending = s.deb.Pending()
	return View{Trip: t, Timeline: t.Timeline(), Status: st}
}

// AddCity appends place with the default stay length and returns the new city's id.
func (s *Session) AddCity(p domain.Place) (domain.CityID, domain.Trip, error) {
	if domain.NormalizeName(p.Name) == "" {
		return "", domain.Trip{}, trips.ValidationError("invalid city", map[string]any{"name": "is required"})
	}
	id := s.m.newCityID()
	t, err := s.mutate(func(t domain.Trip) (domain.Trip, error) {
		it, err := t.Itinerary.Append(id, p)
		if err != nil {
			return t, err
		}
		return t.WithItinerary(it), nil
	})
	if err != nil {
		return "", domain.Trip{}, err
	}
	return id, t, nil
}

// RemoveCity drops a city. Unknown ids leave the itinerary unchanged.
func (s *Session) RemoveCity(id domain.CityID) (domain.Trip, error) {
	return s.mutate(func(t domain.Trip) (domain.Trip, error) {
		return t.WithItinerary(t.Itinerary.Remove(id)), nil
	})
}

// SetDays sets a city's stay, clamped to at least one day.
func (s *Session) SetDays(id domain.CityID, days int) (domain.Trip, error) {
	return s.mutate(func(t domain.Trip) (domain.Trip, error) {
		return t.WithItinerary(t.Itinerary.SetDays(id, days)), nil
	})
}

// MoveCity moves the city at from to position to.
func (s *Session) MoveCity(from, to int) (domain.Trip, error) {
	return s.mutate(func(t domain.Trip) (domain.Trip, error) {
		it, err := t.Itinerary.Move(from, to)
		if err != nil {
			if errors.Is(err, domain.ErrIndexOutOfRange) {
				return t, &trips.Error{
					Status:  http.StatusUnprocessableEntity,
					Code:    "INDEX_OUT_OF_RANGE",
					Message: "index out of range",
					Details: map[string]any{"fromIndex": from, "toIndex": to, "length": t.Itinerary.Len()},
				}
			}
			return t, err
		}
		return t.WithItinerary(it), nil
	})
}

// Update applies a partial update to the trip's name, start date or budget.
func (s *Session) Update(in trips.UpdateTripInput) (domain.Trip, error) {
	return s.mutate(func(t domain.Trip) (domain.Trip, error) {
		return trips.ApplyUpdate(t, in)
	})
}

// Flush writes the working copy now, dropping any scheduled write.
func (s *Session) Flush(ctx context.Context) (View, error) {
	s.deb.Cancel()
	err := s.write(ctx)
	return s.View(), err
}

func (s *Session) mutate(fn func(domain.Trip) (domain.Trip, error)) (domain.Trip, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Trip{}, trips.NotFoundError()
	}
	next, err := fn(s.trip)
	if err != nil {
		s.mu.Unlock()
		return domain.Trip{}, err
	}
	s.trip = next
	s.touched = s.m.clock.Now()
	s.mu.Unlock()

	s.deb.Trigger()
	return next, nil
}

func (s *Session) flushScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.m.opts.FlushTimeout)
	defer cancel()
	_ = s.write(ctx)
}

// write persists the latest working copy. Failures are recorded and logged but not
// retried; the next change schedules another attempt.
func (s *Session) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		// Torn down while this write waited; its edits were discarded.
		s.mu.Unlock()
		return errSessionClosed()
	}
	snapshot := s.trip
	s.mu.Unlock()

	started := time.Now()
	saved, err := s.m.trips.SaveTrip(ctx, s.owner, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		s.m.log.Error("trip save failed",
			zap.String("trip_id", string(s.id)),
			zap.Error(err),
		)
		return err
	}
	savedAt := saved.UpdatedAt
	s.lastSavedAt = &savedAt
	s.lastErr = ""
	s.trip.UpdatedAt = saved.UpdatedAt
	s.m.log.Debug("trip saved",
		zap.String("trip_id", string(s.id)),
		zap.Int("cities", snapshot.Itinerary.Len()),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

func errSessionClosed() *trips.Error {
	return &trips.Error{
		Status:  http.StatusConflict,
		Code:    "SESSION_CLOSED",
		Message: "editing session was closed; unsaved changes were discarded",
	}
}

// close cancels any scheduled write and waits for an in-flight one to finish.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.deb.Stop() {
		s.m.log.Info("discarded unsaved changes", zap.String("trip_id", string(s.id)))
	}
	// Wait out an in-flight write.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	touched := s.touched
	s.mu.Unlock()
	return touched, s.deb.Pending()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touched = s.m.clock.Now()
	s.mu.Unlock()
}
