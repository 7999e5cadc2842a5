package model

import (
	"time"

	"venue-admin-backend/internal/parse"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCheckedIn BookingStatus = "checked-in"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no-show"
)

// OccupiesGrid reports whether bookings in this status are drawn on the day schedule.
func (s BookingStatus) OccupiesGrid() bool {
	switch s {
	case StatusConfirmed, StatusCheckedIn, StatusPending:
		return true
	}
	return false
}

// Booking is a reservation of a space. StartTime is kept as received from the
// backend and parsed on demand.
type Booking struct {
	ID            string        `json:"id"`
	SpaceID       string        `json:"spaceId"`
	Title         string        `json:"title,omitempty"`
	StartTime     string        `json:"startTime"`
	DurationValue float64       `json:"durationValue"`
	DurationUnit  DurationUnit  `json:"durationUnit"`
	Status        BookingStatus `json:"status"`
}

// GetID implements Identifiable.
func (b Booking) GetID() string { return b.ID }

// Duration returns the booking's length as a tagged Duration.
func (b Booking) Duration() (Duration, error) {
	return NewDuration(b.DurationValue, b.DurationUnit)
}

// Start parses the booking's start time in loc.
func (b Booking) Start(loc *time.Location) (time.Time, error) {
	return parse.BookingStart(b.StartTime, loc)
}

// End returns the start time plus the normalised duration.
func (b Booking) End(loc *time.Location) (time.Time, error) {
	start, err := b.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	d, err := b.Duration()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(d.Minutes()) * time.Minute), nil
}
