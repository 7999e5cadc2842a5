// Package store persists whole cached collections per resource type.
//
// A Store has no business logic: Write replaces, Read returns what was
// written, Clear forgets everything. Storage faults and undecodable entries
// read as absent and are never returned to callers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/model"
)

// ErrMalformedEntry marks a cached entry that could not be decoded. It is
// only ever logged; readers see such an entry as absent.
var ErrMalformedEntry = errors.New("malformed cache entry")

// Entry is one cached collection in its encoded form.
type Entry struct {
	Resource    model.Resource
	Payload     json.RawMessage
	LastUpdated time.Time
	RecordCount int
}

// Store defines the persistence operations for cached collections.
type Store interface {
	// Write replaces the entry for resource and stamps LastUpdated.
	Write(ctx context.Context, resource model.Resource, payload json.RawMessage, count int) (Entry, error)
	// Read returns the last written entry, or false if there is none or it
	// cannot be read back.
	Read(ctx context.Context, resource model.Resource) (Entry, bool)
	// Clear removes the entries of every resource type.
	Clear(ctx context.Context) error
	// Available is false when the store cannot persist anything.
	Available() bool
}

// Option configures the stores in this package.
type Option func(*options)

type options struct {
	now func() time.Time
	log *zap.SugaredLogger
}

// WithClock overrides the clock used to stamp LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used to report storage faults.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrNop(o.log)
	return o
}
