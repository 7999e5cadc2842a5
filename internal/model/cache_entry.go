package model

import "time"

// CacheEntry is the persisted form of one cached collection.
type CacheEntry struct {
	Resource    string    `gorm:"primaryKey;size:32"`
	Payload     []byte    `gorm:"not null"`
	LastUpdated time.Time `gorm:"not null"`
	RecordCount int       `gorm:"not null"`
}
