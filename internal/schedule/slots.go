// Package schedule lays bookings and recurring break windows out on a
// day grid of fixed-size time slots.
package schedule

import (
	"errors"
	"fmt"
)

// ErrInvalidLayout is returned for grid parameters no grid can be built from.
var ErrInvalidLayout = errors.New("invalid schedule layout")

// TimeSlot is one row of the day grid.
type TimeSlot struct {
	Hour   int
	Minute int
}

// SlotAt returns the slot starting minuteOfDay minutes after midnight.
func SlotAt(minuteOfDay int) TimeSlot {
	return TimeSlot{Hour: minuteOfDay / 60, Minute: minuteOfDay % 60}
}

// MinuteOfDay returns the slot's offset from midnight in minutes.
func (s TimeSlot) MinuteOfDay() int { return s.Hour*60 + s.Minute }

func (s TimeSlot) String() string { return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute) }

// MarshalText renders the slot as "HH:MM".
func (s TimeSlot) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// GenerateSlots returns every slot from startHour:00 to endHour:00 inclusive
// at interval-minute steps. No slot lies past endHour:00.
func GenerateSlots(startHour, endHour, intervalMinutes int) ([]TimeSlot, error) {
	if err := validateWindow(startHour, endHour, intervalMinutes); err != nil {
		return nil, err
	}
	end := endHour * 60
	slots := make([]TimeSlot, 0, (end-startHour*60)/intervalMinutes+1)
	for m := startHour * 60; m <= end; m += intervalMinutes {
		slots = append(slots, SlotAt(m))
	}
	return slots, nil
}

func validateWindow(startHour, endHour, intervalMinutes int) error {
	if intervalMinutes <= 0 {
		return fmt.Errorf("%w: slot interval must be positive, got %d", ErrInvalidLayout, intervalMinutes)
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return fmt.Errorf("%w: day window %d-%d", ErrInvalidLayout, startHour, endHour)
	}
	return nil
}

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
