package store

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/patrickmn/go-cache"

	"venue-admin-backend/internal/model"
)

// memoryStore keeps entries in process memory. Entries never expire; only
// Write and Clear change them.
type memoryStore struct {
	entries *cache.Cache
	options
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(opts ...Option) Store {
	return &memoryStore{
		entries: cache.New(cache.NoExpiration, 0),
		options: buildOptions(opts),
	}
}

func (s *memoryStore) Available() bool { return true }

func (s *memoryStore) Write(_ context.Context, resource model.Resource, payload json.RawMessage, count int) (Entry, error) {
	entry := Entry{
		Resource:    resource,
		Payload:     slices.Clone(payload),
		LastUpdated: s.now().UTC(),
		RecordCount: count,
	}
	s.entries.Set(string(resource), entry, cache.NoExpiration)
	return entry, nil
}

func (s *memoryStore) Read(_ context.Context, resource model.Resource) (Entry, bool) {
	v, found := s.entries.Get(string(resource))
	if !found {
		return Entry{}, false
	}
	entry, ok := v.(Entry)
	if !ok || !json.Valid(entry.Payload) {
		s.log.Warnw("discarding cache entry", "resource", resource, "error", ErrMalformedEntry)
		return Entry{}, false
	}
	entry.Payload = slices.Clone(entry.Payload)
	return entry, true
}

func (s *memoryStore) Clear(context.Context) error {
	s.entries.Flush()
	return nil
}
