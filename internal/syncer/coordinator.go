// Package syncer decides when cached collections are served, refreshed in the
// background or fetched in the foreground, and coalesces concurrent fetches of
// the same resource into one in-flight operation.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"venue-admin-backend/internal/events"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/metrics"
	"venue-admin-backend/internal/model"
	"venue-admin-backend/internal/store"
)

// SyncState is the synchronization state of one resource type.
type SyncState string

const (
	StateIdle    SyncState = "Idle"
	StateSyncing SyncState = "Syncing"
)

// FetchFunc loads the full collection for a resource from the backend.
// Timeouts are the fetch function's responsibility.
type FetchFunc[T model.Identifiable] func(ctx context.Context) ([]T, error)

// FetchError reports a foreground fetch that failed with nothing cached to
// fall back to.
type FetchError struct {
	Resource model.Resource
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Coordinator owns the per-resource sync lifecycle for one cache.
type Coordinator struct {
	store   store.Store
	bus     *events.Bus
	log     *zap.SugaredLogger
	metrics metrics.Recorder
	now     func() time.Time

	group singleflight.Group

	mu sync.Mutex
	// generation is bumped by Clear; flights started under an older
	// generation never write their results.
	generation uint64
	states     map[model.Resource]SyncState
	active     map[model.Resource]int
	warmedUp   map[model.Resource]bool

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// Option is a function that configures the coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics sets the recorder for hit/miss/refresh counters.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Coordinator) { c.metrics = r }
}

// WithClock overrides the clock used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a coordinator over s. Background refreshes publish on bus.
func New(s store.Store, bus *events.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    s,
		bus:      bus,
		metrics:  metrics.Nop{},
		now:      time.Now,
		states:   make(map[model.Resource]SyncState),
		active:   make(map[model.Resource]int),
		warmedUp: make(map[model.Resource]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log)
	c.bgCtx, c.bgCancel = context.WithCancel(context.Background())
	return c
}

// Store returns the underlying cache store.
func (c *Coordinator) Store() store.Store { return c.store }

// State returns the sync state of resource, creating it as Idle on first access.
func (c *Coordinator) State(resource model.Resource) SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[resource]
	if !ok {
		st = StateIdle
		c.states[resource] = st
	}
	return st
}

func (c *Coordinator) inFlight(resource model.Resource) bool {
	return c.State(resource) == StateSyncing
}

// HasWarmedUp reports whether warmup already ran for resource in this session.
func (c *Coordinator) HasWarmedUp(resource model.Resource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warmedUp[resource]
}

// Clear removes every cached collection and sync state. It is the
// logout/tenant-switch entry point; results of fetches still in flight are
// discarded when they complete.
func (c *Coordinator) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	c.states = make(map[model.Resource]SyncState)
	c.active = make(map[model.Resource]int)
	c.mu.Unlock()

	for _, r := range model.Resources {
		c.group.Forget(string(r))
	}
	return c.store.Clear(ctx)
}

// ResetForNewSession re-arms warmup for every resource.
func (c *Coordinator) ResetForNewSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warmedUp = make(map[model.Resource]bool)
}

// Wait blocks until every background refresh started so far has finished.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

// Close cancels running background refreshes and waits for them.
func (c *Coordinator) Close() {
	c.bgCancel()
	c.bg.Wait()
}

// beginFlight marks resource as syncing and returns the generation the
// flight belongs to.
func (c *Coordinator) beginFlight(resource model.Resource) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[resource]++
	c.states[resource] = StateSyncing
	return c.generation
}

func (c *Coordinator) markWarmedUp(resource model.Resource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warmedUp[resource] {
		return false
	}
	c.warmedUp[resource] = true
	return true
}
