package model

import (
	"slices"
	"time"
)

// Space represents a bookable room or zone in the facility.
type Space struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Capacity     int           `json:"capacity"`
	BreakWindows []BreakWindow `json:"breakWindows,omitempty"`
}

// GetID implements Identifiable.
func (s Space) GetID() string { return s.ID }

// BreakWindow is a recurring weekday-scoped interval during which a space is
// not bookable. Times are "HH:MM" in the facility's local time.
type BreakWindow struct {
	DaysOfWeek []time.Weekday `json:"daysOfWeek"`
	StartTime  string         `json:"startTime"`
	EndTime    string         `json:"endTime"`
}

// Applies reports whether the window recurs on the given weekday.
func (w BreakWindow) Applies(day time.Weekday) bool {
	return slices.Contains(w.DaysOfWeek, day)
}
