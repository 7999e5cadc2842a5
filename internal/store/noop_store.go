package store

import (
	"context"
	"encoding/json"

	"venue-admin-backend/internal/model"
)

// noopStore is used when no cache storage is available. Reads are always
// absent, so every read goes to the backend.
type noopStore struct {
	options
}

// NewNoopStore creates a store that persists nothing.
func NewNoopStore(opts ...Option) Store {
	return &noopStore{options: buildOptions(opts)}
}

func (s *noopStore) Available() bool { return false }

func (s *noopStore) Write(_ context.Context, resource model.Resource, _ json.RawMessage, count int) (Entry, error) {
	return Entry{Resource: resource, LastUpdated: s.now().UTC(), RecordCount: count}, nil
}

func (s *noopStore) Read(context.Context, model.Resource) (Entry, bool) {
	return Entry{}, false
}

func (s *noopStore) Clear(context.Context) error { return nil }
