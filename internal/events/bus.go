// Package events carries cache change notifications from writers to the
// views that derive state from cached collections.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/metrics"
	"venue-admin-backend/internal/model"
)

// Operation is the kind of change a ChangeEvent reports.
type Operation string

const (
	OpCreated     Operation = "created"
	OpUpdated     Operation = "updated"
	OpDeleted     Operation = "deleted"
	OpBulkCreated Operation = "bulk-created"
	OpBulkDeleted Operation = "bulk-deleted"
	OpCleared     Operation = "cleared"
	OpRefreshed   Operation = "refreshed"
)

// ChangeEvent describes one change to a cached collection. Subscribers should
// re-derive their state from the cache rather than patch it from Items.
type ChangeEvent struct {
	ID          uuid.UUID      `json:"id"`
	Resource    model.Resource `json:"resource"`
	Operation   Operation      `json:"operation"`
	AffectedIDs []string       `json:"affectedIds,omitempty"`
	Items       any            `json:"items,omitempty"`
	At          time.Time      `json:"at"`
}

// Handler receives change events.
type Handler func(ChangeEvent)

type subscription struct {
	id       uint64
	resource model.Resource // empty for every resource
	handler  Handler
}

// Bus is a process-wide publish/subscribe hub keyed by resource type.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscription
	nextID  uint64
	now     func() time.Time
	log     *zap.SugaredLogger
	metrics metrics.Recorder
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// WithLogger sets the logger used to report failing handlers.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Bus) { b.log = l }
}

// WithMetrics sets the recorder counting published events.
func WithMetrics(r metrics.Recorder) Option {
	return func(b *Bus) { b.metrics = r }
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{now: time.Now, metrics: metrics.Nop{}}
	for _, opt := range opts {
		opt(b)
	}
	b.log = logger.OrNop(b.log)
	return b
}

// Subscribe registers h for events on resource and returns a function that
// removes the registration. Calling the returned function more than once is safe.
func (b *Bus) Subscribe(resource model.Resource, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, resource: resource, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// SubscribeAll registers h for events on every resource.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	return b.Subscribe("", h)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish stamps ev and delivers it synchronously to every matching
// subscriber in registration order.
func (b *Bus) Publish(ev ChangeEvent) ChangeEvent {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = b.now()
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.resource == "" || s.resource == ev.Resource {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	b.metrics.EventPublished(string(ev.Resource), string(ev.Operation))
	for _, h := range targets {
		b.deliver(h, ev)
	}
	return ev
}

func (b *Bus) deliver(h Handler, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("change event handler panicked",
				"resource", ev.Resource,
				"operation", ev.Operation,
				"panic", r)
		}
	}()
	h(ev)
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
