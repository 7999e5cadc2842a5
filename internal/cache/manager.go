// Package cache wires the resource cache together: one Manager per process,
// built by the composition root and handed to the HTTP layer and the
// background revalidation service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"venue-admin-backend/internal/events"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/metrics"
	"venue-admin-backend/internal/model"
	"venue-admin-backend/internal/mutation"
	"venue-admin-backend/internal/schedule"
	"venue-admin-backend/internal/store"
	"venue-admin-backend/internal/syncer"
)

// Fetchers load full collections from the backend.
type Fetchers struct {
	Rooms    syncer.FetchFunc[model.Space]
	Bookings syncer.FetchFunc[model.Booking]
}

// Settings holds the freshness policy and the schedule layout.
type Settings struct {
	RoomsStaleAfter    time.Duration
	BookingsStaleAfter time.Duration

	IntervalMinutes int
	DayStartHour    int
	DayEndHour      int
	Location        *time.Location
}

// Manager owns the cache store, the sync coordinator, the event bus and the
// per-resource mutation appliers.
type Manager struct {
	store    store.Store
	bus      *events.Bus
	coord    *syncer.Coordinator
	rooms    *mutation.Applier[model.Space]
	bookings *mutation.Applier[model.Booking]
	fetch    Fetchers
	settings Settings
	log      *zap.SugaredLogger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	log     *zap.SugaredLogger
	metrics metrics.Recorder
	now     func() time.Time
}

// WithLogger sets the logger shared by the manager's components.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *managerOptions) { o.log = l }
}

// WithMetrics sets the recorder for cache counters.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *managerOptions) { o.metrics = r }
}

// WithClock overrides the clock used for staleness.
func WithClock(now func() time.Time) Option {
	return func(o *managerOptions) { o.now = now }
}

// NewManager builds a manager over s. Events are published on bus.
func NewManager(s store.Store, bus *events.Bus, fetch Fetchers, settings Settings, opts ...Option) *Manager {
	o := managerOptions{metrics: metrics.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrNop(o.log)
	if settings.Location == nil {
		settings.Location = time.UTC
	}

	return &Manager{
		store:    s,
		bus:      bus,
		coord:    syncer.New(s, bus, syncer.WithLogger(o.log), syncer.WithMetrics(o.metrics), syncer.WithClock(o.now)),
		rooms:    mutation.NewApplier[model.Space](s, bus, model.ResourceRooms, o.log),
		bookings: mutation.NewApplier[model.Booking](s, bus, model.ResourceBookings, o.log),
		fetch:    fetch,
		settings: settings,
		log:      o.log,
		now:      o.now,
	}
}

// Events returns the bus change events are published on.
func (m *Manager) Events() *events.Bus { return m.bus }

// Rooms returns the cached rooms, fetching or revalidating as needed.
func (m *Manager) Rooms(ctx context.Context) ([]model.Space, error) {
	return syncer.GetOrFetch(ctx, m.coord, model.ResourceRooms, m.fetch.Rooms, m.settings.RoomsStaleAfter)
}

// Bookings returns the cached bookings, fetching or revalidating as needed.
func (m *Manager) Bookings(ctx context.Context) ([]model.Booking, error) {
	return syncer.GetOrFetch(ctx, m.coord, model.ResourceBookings, m.fetch.Bookings, m.settings.BookingsStaleAfter)
}

// RefreshRooms fetches rooms regardless of freshness.
func (m *Manager) RefreshRooms(ctx context.Context) ([]model.Space, error) {
	return syncer.ForceRefresh(ctx, m.coord, model.ResourceRooms, m.fetch.Rooms)
}

// RefreshBookings fetches bookings regardless of freshness.
func (m *Manager) RefreshBookings(ctx context.Context) ([]model.Booking, error) {
	return syncer.ForceRefresh(ctx, m.coord, model.ResourceBookings, m.fetch.Bookings)
}

// Warmup fills both collections once per session.
func (m *Manager) Warmup(ctx context.Context) error {
	return errors.Join(
		syncer.Warmup(ctx, m.coord, model.ResourceRooms, m.fetch.Rooms),
		syncer.Warmup(ctx, m.coord, model.ResourceBookings, m.fetch.Bookings),
	)
}

// Revalidate reads both collections through the stale-while-revalidate path
// so stale entries get refreshed in the background.
func (m *Manager) Revalidate(ctx context.Context) error {
	_, rerr := m.Rooms(ctx)
	_, berr := m.Bookings(ctx)
	return errors.Join(rerr, berr)
}

// RoomsApplier mutates the cached rooms.
func (m *Manager) RoomsApplier() *mutation.Applier[model.Space] { return m.rooms }

// BookingsApplier mutates the cached bookings.
func (m *Manager) BookingsApplier() *mutation.Applier[model.Booking] { return m.bookings }

// ResourceStatus summarises one cached resource.
type ResourceStatus struct {
	Resource    model.Resource   `json:"resource"`
	State       syncer.SyncState `json:"state"`
	Cached      bool             `json:"cached"`
	LastUpdated *time.Time       `json:"lastUpdated,omitempty"`
	RecordCount int              `json:"recordCount"`
	Stale       bool             `json:"stale"`
	StaleAfter  string           `json:"staleAfter"`
	WarmedUp    bool             `json:"warmedUp"`
}

// Status reports the sync state and cache metadata of every resource.
func (m *Manager) Status(ctx context.Context) []ResourceStatus {
	now := m.now()
	out := make([]ResourceStatus, 0, len(model.Resources))
	for _, r := range model.Resources {
		staleAfter := m.staleAfter(r)
		st := ResourceStatus{
			Resource:   r,
			State:      m.coord.State(r),
			StaleAfter: staleAfter.String(),
			WarmedUp:   m.coord.HasWarmedUp(r),
		}
		if e, ok := m.store.Read(ctx, r); ok {
			updated := e.LastUpdated
			st.Cached = true
			st.LastUpdated = &updated
			st.RecordCount = e.RecordCount
			st.Stale = now.Sub(updated) > staleAfter
		}
		out = append(out, st)
	}
	return out
}

// StorageAvailable reports whether the store persists anything.
func (m *Manager) StorageAvailable() bool { return m.store.Available() }

func (m *Manager) staleAfter(r model.Resource) time.Duration {
	if r == model.ResourceRooms {
		return m.settings.RoomsStaleAfter
	}
	return m.settings.BookingsStaleAfter
}

// EndSession is the logout and tenant-switch hook. It drops every cached
// collection and sync state, re-arms warmup and publishes a cleared event
// per resource.
func (m *Manager) EndSession(ctx context.Context) error {
	if err := m.coord.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear resource cache: %w", err)
	}
	m.coord.ResetForNewSession()
	m.log.Infow("session ended, resource cache cleared")
	if m.bus != nil {
		for _, r := range model.Resources {
			m.bus.Publish(events.ChangeEvent{Resource: r, Operation: events.OpCleared})
		}
	}
	return nil
}

// Schedule lays out the given day from the cached rooms and bookings. A zero
// interval uses the configured one. day is interpreted in the configured
// location.
func (m *Manager) Schedule(ctx context.Context, day time.Time, intervalMinutes int) (*schedule.Grid, error) {
	spaces, err := m.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := m.Bookings(ctx)
	if err != nil {
		return nil, err
	}
	if intervalMinutes <= 0 {
		intervalMinutes = m.settings.IntervalMinutes
	}

	y, mo, d := day.Date()
	g, err := schedule.BuildGrid(schedule.Input{
		Spaces:          spaces,
		Bookings:        bookings,
		Day:             time.Date(y, mo, d, 0, 0, 0, 0, m.settings.Location),
		IntervalMinutes: intervalMinutes,
		DayStartHour:    m.settings.DayStartHour,
		DayEndHour:      m.settings.DayEndHour,
	})
	if err != nil {
		return nil, err
	}
	g.LogWarnings(m.log)
	return g, nil
}

// Wait blocks until background refreshes started so far have finished.
func (m *Manager) Wait() { m.coord.Wait() }

// Close stops background refreshes.
func (m *Manager) Close() { m.coord.Close() }
