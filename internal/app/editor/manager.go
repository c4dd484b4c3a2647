package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/travelplan/itinerary-api/internal/app/trips"
	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/clock"
)

type Options struct {
	// Delay is the quiet period after the last change before a write.
	Delay time.Duration
	// FlushTimeout bounds a scheduled write.
	FlushTimeout time.Duration
	// IdleTimeout is how long an untouched session with nothing to write is kept.
	IdleTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{Delay: 2 * time.Second, FlushTimeout: 5 * time.Second, IdleTimeout: 30 * time.Minute}
}

// Manager tracks the open sessions, at most one per trip.
type Manager struct {
	trips *trips.Service
	clock clock.Clock
	log   *zap.Logger
	opts  Options

	mu       sync.Mutex
	sessions map[domain.TripID]*Session

	newCityID func() domain.CityID
}

func NewManager(svc *trips.Service, clk clock.Clock, log *zap.Logger, opts Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.Delay <= 0 {
		opts.Delay = def.Delay
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = def.FlushTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = def.IdleTimeout
	}
	return &Manager{
		trips:    svc,
		clock:    clk,
		log:      log,
		opts:     opts,
		sessions: make(map[domain.TripID]*Session),
		newCityID: func() domain.CityID {
			return domain.CityID(uuid.NewString())
		},
	}
}

// SetNewCityIDForTest overrides city ID generation for deterministic tests.
func (m *Manager) SetNewCityIDForTest(fn func() domain.CityID) {
	if fn != nil {
		m.newCityID = fn
	}
}

// Open returns the session for id, loading the trip on first use. A trip owned by
// someone else is reported as not found.
func (m *Manager) Open(ctx context.Context, owner domain.SubjectID, id domain.TripID) (*Session, error) {
	if s, ok := m.lookup(owner, id); ok {
		s.touch()
		return s, nil
	}

	t, err := m.trips.GetTrip(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have opened it while we were loading.
	if s, ok := m.sessions[id]; ok {
		if s.owner != owner {
			return nil, trips.NotFoundError()
		}
		return s, nil
	}
	s := newSession(m, t)
	m.sessions[id] = s
	m.log.Debug("session opened", zap.String("trip_id", string(id)))
	return s, nil
}

// View reads a trip through its session when one is open, otherwise from storage
// without opening one.
func (m *Manager) View(ctx context.Context, owner domain.SubjectID, id domain.TripID) (View, error) {
	if s, ok := m.lookup(owner, id); ok {
		return s.View(), nil
	}
	t, err := m.trips.GetTrip(ctx, owner, id)
	if err != nil {
		return View{}, err
	}
	return View{Trip: t, Timeline: t.Timeline()}, nil
}

// Close tears down the session for id. A scheduled write is cancelled, not flushed.
func (m *Manager) Close(owner domain.SubjectID, id domain.TripID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.owner != owner {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.close()
	return true
}

// Delete closes any session for id and removes the trip.
func (m *Manager) Delete(ctx context.Context, owner domain.SubjectID, id domain.TripID) error {
	m.Close(owner, id)
	return m.trips.DeleteTrip(ctx, owner, id)
}

// FlushAll writes every session that has a scheduled write, concurrently.
func (m *Manager) FlushAll(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range m.all() {
		if !s.deb.Cancel() {
			continue
		}
		g.Go(func() error {
			return s.write(ctx)
		})
	}
	return g.Wait()
}

// Shutdown flushes pending writes and closes every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	err := m.FlushAll(ctx)

	m.mu.Lock()
	ss := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		ss = append(ss, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range ss {
		s.close()
	}
	return err
}

// Sweep closes sessions untouched for IdleTimeout that have nothing left to write.
// It returns how many were closed.
func (m *Manager) Sweep(now time.Time) int {
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		touched, pending := s.idleSince()
		if pending || now.Sub(touched) < m.opts.IdleTimeout {
			continue
		}
		delete(m.sessions, id)
		idle = append(idle, s)
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		m.log.Debug("idle sessions closed", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(owner domain.SubjectID, id domain.TripID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.owner != owner {
		return nil, false
	}
	return s, true
}

func (m *Manager) all() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
