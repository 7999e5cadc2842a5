// Package mutation applies create, update and delete operations to cached
// collections and announces them on the event bus.
package mutation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"venue-admin-backend/internal/events"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/model"
	"venue-admin-backend/internal/store"
)

// Applier runs read-modify-write transforms against one cached resource.
// Each transform holds the applier lock from the read to the write, so
// mutations of the same resource never interleave.
type Applier[T model.Identifiable] struct {
	store    store.Store
	bus      *events.Bus
	resource model.Resource
	log      *zap.SugaredLogger

	mu sync.Mutex
}

// NewApplier binds an applier to resource. bus may be nil.
func NewApplier[T model.Identifiable](s store.Store, bus *events.Bus, resource model.Resource, log *zap.SugaredLogger) *Applier[T] {
	return &Applier[T]{
		store:    s,
		bus:      bus,
		resource: resource,
		log:      logger.OrNop(log),
	}
}

// Resource returns the resource type this applier mutates.
func (a *Applier[T]) Resource() model.Resource { return a.resource }

// Add inserts item. An item with the same id is replaced in place, so ids
// stay unique.
func (a *Applier[T]) Add(ctx context.Context, item T) error {
	return a.apply(ctx, func(items []T) ([]T, []string, events.Operation) {
		return upsert(items, item), []string{item.GetID()}, events.OpCreated
	}, []T{item})
}

// AddMany inserts items in order with the same replacement rule as Add.
func (a *Applier[T]) AddMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.GetID())
	}
	return a.apply(ctx, func(current []T) ([]T, []string, events.Operation) {
		for _, it := range items {
			current = upsert(current, it)
		}
		return current, ids, events.OpBulkCreated
	}, items)
}

// Upsert replaces the item with the same id, keeping its position, or
// appends it. The event is "updated" for a replacement and "created" for an
// append.
func (a *Applier[T]) Upsert(ctx context.Context, item T) error {
	return a.apply(ctx, func(items []T) ([]T, []string, events.Operation) {
		op := events.OpCreated
		if indexOf(items, item.GetID()) >= 0 {
			op = events.OpUpdated
		}
		return upsert(items, item), []string{item.GetID()}, op
	}, []T{item})
}

// Remove deletes the item with id. It reports whether anything was removed;
// a missing id is not an error and publishes nothing.
func (a *Applier[T]) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := a.RemoveMany(ctx, []string{id})
	if err != nil {
		return false, err
	}
	return len(removed) > 0, nil
}

// RemoveMany deletes every item whose id is in ids and returns the ids that
// were actually present.
func (a *Applier[T]) RemoveMany(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var removed []string
	op := events.OpBulkDeleted
	if len(ids) == 1 {
		op = events.OpDeleted
	}
	err := a.apply(ctx, func(items []T) ([]T, []string, events.Operation) {
		kept := items[:0:0]
		for _, it := range items {
			if _, ok := want[it.GetID()]; ok {
				removed = append(removed, it.GetID())
				continue
			}
			kept = append(kept, it)
		}
		return kept, removed, op
	}, nil)
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// transform returns the new collection, the affected ids and the event
// operation. No affected ids means nothing changed.
type transform[T model.Identifiable] func(items []T) ([]T, []string, events.Operation)

func (a *Applier[T]) apply(ctx context.Context, fn transform[T], payload []T) error {
	a.mu.Lock()
	var (
		affected []string
		op       events.Operation
	)
	err := func() error {
		defer a.mu.Unlock()
		current, _ := store.ReadCollection[T](ctx, a.store, a.resource, a.log)
		var next []T
		next, affected, op = fn(slices.Clone(current.Items))
		if len(affected) == 0 {
			return nil
		}
		if _, err := store.WriteCollection(ctx, a.store, a.resource, next); err != nil {
			return fmt.Errorf("failed to write %s after %s: %w", a.resource, op, err)
		}
		return nil
	}()
	if err != nil || len(affected) == 0 {
		return err
	}

	a.log.Debugw("cache mutated", "resource", a.resource, "operation", op, "ids", affected)
	if a.bus != nil {
		ev := events.ChangeEvent{Resource: a.resource, Operation: op, AffectedIDs: affected}
		if payload != nil {
			ev.Items = payload
		}
		a.bus.Publish(ev)
	}
	return nil
}

func indexOf[T model.Identifiable](items []T, id string) int {
	return slices.IndexFunc(items, func(it T) bool { return it.GetID() == id })
}

func upsert[T model.Identifiable](items []T, item T) []T {
	if i := indexOf(items, item.GetID()); i >= 0 {
		items[i] = item
		return items
	}
	return append(items, item)
}
