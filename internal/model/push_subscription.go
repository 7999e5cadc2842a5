package model

import (
	"slices"
	"strings"
	"time"
)

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Topics    string    `gorm:"size:128;not null"` // comma-separated resource names
	CreatedAt time.Time `gorm:"not null"`
}

// TopicList returns the resources the subscription listens to.
func (s PushSubscription) TopicList() []Resource {
	var out []Resource
	for _, t := range strings.Split(s.Topics, ",") {
		if r := Resource(strings.TrimSpace(t)); r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// JoinTopics encodes resources into the Topics column form.
func JoinTopics(resources []Resource) string {
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		if r.Valid() && !slices.Contains(names, string(r)) {
			names = append(names, string(r))
		}
	}
	return strings.Join(names, ",")
}
