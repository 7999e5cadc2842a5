package store

import (
	"gorm.io/gorm"
)

// New selects a store for driver ("gorm", "memory" or "none"). A gorm store
// without a database degrades to the no-op store, which callers handle the
// same way as an empty cache.
func New(driver string, db *gorm.DB, opts ...Option) Store {
	o := buildOptions(opts)
	switch driver {
	case "memory":
		return NewMemoryStore(opts...)
	case "none":
		o.log.Warn("resource cache disabled; every read goes to the backend")
		return NewNoopStore(opts...)
	default:
		if db == nil {
			o.log.Warn("cache storage unavailable; every read goes to the backend")
			return NewNoopStore(opts...)
		}
		return NewGormStore(db, opts...)
	}
}
