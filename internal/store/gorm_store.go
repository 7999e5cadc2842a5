package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-admin-backend/internal/model"
)

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
	options
}

// NewGormStore creates a GORM-backed store. The cache_entries table must
// already be migrated.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	return &gormStore{db: db, options: buildOptions(opts)}
}

func (s *gormStore) Available() bool { return true }

// Write replaces the row for resource in a single upsert.
func (s *gormStore) Write(ctx context.Context, resource model.Resource, payload json.RawMessage, count int) (Entry, error) {
	row := model.CacheEntry{
		Resource:    string(resource),
		Payload:     payload,
		LastUpdated: s.now().UTC(),
		RecordCount: count,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "last_updated", "record_count"}),
	}).Create(&row).Error
	if err != nil {
		return Entry{}, fmt.Errorf("failed to write %s cache entry: %w", resource, err)
	}
	return entryFromRow(row), nil
}

func (s *gormStore) Read(ctx context.Context, resource model.Resource) (Entry, bool) {
	var row model.CacheEntry
	err := s.db.WithContext(ctx).Where("resource = ?", string(resource)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false
	}
	if err != nil {
		s.log.Warnw("cache read failed, treating as absent", "resource", resource, "error", err)
		return Entry{}, false
	}
	if !json.Valid(row.Payload) {
		s.log.Warnw("discarding cache row", "resource", resource, "error", ErrMalformedEntry)
		return Entry{}, false
	}
	return entryFromRow(row), true
}

func (s *gormStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.CacheEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}

func entryFromRow(row model.CacheEntry) Entry {
	return Entry{
		Resource:    model.Resource(row.Resource),
		Payload:     json.RawMessage(row.Payload),
		LastUpdated: row.LastUpdated,
		RecordCount: row.RecordCount,
	}
}
