package syncer

import (
	"context"
	"fmt"
	"slices"
	"time"

	"venue-admin-backend/internal/events"
	"venue-admin-backend/internal/model"
	"venue-admin-backend/internal/store"
)

// GetOrFetch returns the collection for resource using stale-while-revalidate:
//
//  1. a fetch already in flight is joined instead of starting another;
//  2. a non-empty cached collection is returned at once, and if it is older
//     than staleAfter a background refresh is started;
//  3. otherwise the collection is fetched in the foreground.
//
// Only a failed fetch with nothing cached returns an error (*FetchError).
func GetOrFetch[T model.Identifiable](ctx context.Context, c *Coordinator, resource model.Resource, fetch FetchFunc[T], staleAfter time.Duration) ([]T, error) {
	if c.inFlight(resource) {
		items, err := join(ctx, c, resource, fetch)
		if err == nil {
			return items, nil
		}
		if cached, ok := store.ReadCollection[T](ctx, c.store, resource, c.log); ok && !cached.Empty() {
			c.log.Debugw("joined fetch failed, serving cached collection", "resource", resource, "error", err)
			return cached.Items, nil
		}
		return nil, err
	}

	cached, ok := store.ReadCollection[T](ctx, c.store, resource, c.log)
	if ok && !cached.Empty() {
		stale := cached.IsStale(staleAfter, c.now())
		c.metrics.CacheHit(string(resource), stale)
		if stale {
			refreshInBackground(c, resource, fetch)
		}
		return cached.Items, nil
	}

	c.metrics.CacheMiss(string(resource))
	return join(ctx, c, resource, fetch)
}

// Warmup fills the cache for resource once per session. Any cached entry,
// fresh or stale, makes it a no-op.
func Warmup[T model.Identifiable](ctx context.Context, c *Coordinator, resource model.Resource, fetch FetchFunc[T]) error {
	if !c.markWarmedUp(resource) {
		return nil
	}
	if _, ok := c.store.Read(ctx, resource); ok {
		c.log.Debugw("cache already populated, skipping warmup", "resource", resource)
		return nil
	}
	c.log.Infow("warming up cache", "resource", resource)
	_, err := join(ctx, c, resource, fetch)
	return err
}

// ForceRefresh starts a new fetch cycle regardless of freshness. A cycle
// already in flight is not cancelled; whichever finishes last is kept.
func ForceRefresh[T model.Identifiable](ctx context.Context, c *Coordinator, resource model.Resource, fetch FetchFunc[T]) ([]T, error) {
	c.group.Forget(string(resource))
	return join(ctx, c, resource, fetch)
}

// join runs or joins the foreground flight for resource.
func join[T model.Identifiable](ctx context.Context, c *Coordinator, resource model.Resource, fetch FetchFunc[T]) ([]T, error) {
	ch := c.group.DoChan(string(resource), flight(c, context.WithoutCancel(ctx), resource, fetch, false))
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, &FetchError{Resource: resource, Err: res.Err}
		}
		return asItems[T](resource, res.Val)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func refreshInBackground[T model.Identifiable](c *Coordinator, resource model.Resource, fetch FetchFunc[T]) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		_, err, _ := c.group.Do(string(resource), flight(c, c.bgCtx, resource, fetch, true))
		if err != nil {
			c.log.Warnw("background refresh failed, keeping cached collection", "resource", resource, "error", err)
		}
	}()
}

// flight fetches resource, writes the result to the store and, for
// background refreshes, publishes a refreshed event.
func flight[T model.Identifiable](c *Coordinator, ctx context.Context, resource model.Resource, fetch FetchFunc[T], background bool) func() (any, error) {
	return func() (any, error) {
		gen := c.beginFlight(resource)
		items, err := fetch(ctx)
		c.metrics.Refresh(string(resource), background, err)
		if err != nil {
			c.finishFlight(resource, gen, nil)
			return nil, err
		}
		if items == nil {
			items = []T{}
		}

		current := c.finishFlight(resource, gen, func() error {
			_, werr := store.WriteCollection(ctx, c.store, resource, items)
			return werr
		})
		if !current {
			c.log.Infow("discarding fetch result from a cleared session", "resource", resource)
			return items, nil
		}
		if background && c.bus != nil {
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.GetID())
			}
			c.bus.Publish(events.ChangeEvent{
				Resource:    resource,
				Operation:   events.OpRefreshed,
				AffectedIDs: ids,
			})
		}
		return items, nil
	}
}

// finishFlight runs write, if any, while holding the coordinator lock so a
// concurrent Clear either sees the write and removes it or invalidates the
// flight first. It reports whether the flight was still current.
func (c *Coordinator) finishFlight(resource model.Resource, gen uint64, write func() error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	if write != nil {
		if err := write(); err != nil {
			c.log.Warnw("failed to write fetched collection to cache", "resource", resource, "error", err)
		}
	}
	c.active[resource]--
	if c.active[resource] <= 0 {
		delete(c.active, resource)
		c.states[resource] = StateIdle
	}
	return true
}

func asItems[T model.Identifiable](resource model.Resource, v any) ([]T, error) {
	items, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("%s fetch produced %T", resource, v)
	}
	return slices.Clone(items), nil
}
