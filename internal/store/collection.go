package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/model"
)

// Collection is the decoded form of a cached entry.
type Collection[T model.Identifiable] struct {
	Items       []T
	LastUpdated time.Time
	RecordCount int
}

// IsStale reports whether more than staleAfter has passed since the
// collection was written.
func (c Collection[T]) IsStale(staleAfter time.Duration, now time.Time) bool {
	return now.Sub(c.LastUpdated) > staleAfter
}

// Empty reports whether the collection holds no items.
func (c Collection[T]) Empty() bool {
	return len(c.Items) == 0
}

// WriteCollection encodes items and replaces the cached entry for resource.
func WriteCollection[T model.Identifiable](ctx context.Context, s Store, resource model.Resource, items []T) (Collection[T], error) {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return Collection[T]{}, fmt.Errorf("failed to encode %s collection: %w", resource, err)
	}
	entry, err := s.Write(ctx, resource, payload, len(items))
	if err != nil {
		return Collection[T]{}, err
	}
	return Collection[T]{Items: items, LastUpdated: entry.LastUpdated, RecordCount: entry.RecordCount}, nil
}

// ReadCollection reads and decodes the cached entry for resource. An entry
// that cannot be decoded is logged and reported as absent.
func ReadCollection[T model.Identifiable](ctx context.Context, s Store, resource model.Resource, log *zap.SugaredLogger) (Collection[T], bool) {
	entry, ok := s.Read(ctx, resource)
	if !ok {
		return Collection[T]{}, false
	}
	items, err := decodeItems[T](entry.Payload)
	if err != nil {
		logger.OrNop(log).Warnw("discarding cached collection",
			"resource", resource,
			"error", fmt.Errorf("%w: %v", ErrMalformedEntry, err))
		return Collection[T]{}, false
	}
	return Collection[T]{Items: items, LastUpdated: entry.LastUpdated, RecordCount: entry.RecordCount}, true
}

func decodeItems[T model.Identifiable](payload json.RawMessage) ([]T, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, fmt.Errorf("payload is not a list")
	}
	return items, nil
}
