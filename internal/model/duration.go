package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownDurationUnit is returned for a duration unit outside the closed set.
var ErrUnknownDurationUnit = errors.New("unknown duration unit")

// DurationUnit is the wire representation of how a booking's duration is expressed.
type DurationUnit string

const (
	UnitHours           DurationUnit = "hours"
	UnitMinutes         DurationUnit = "minutes"
	UnitHoursAndMinutes DurationUnit = "hours-and-minutes"
)

// Duration is a booking length tagged with its unit. Only NewDuration builds
// valid values, so Minutes is the single place a length is normalised.
type Duration struct {
	unit  DurationUnit
	value float64
}

// Hours returns a duration of v hours.
func Hours(v float64) Duration { return Duration{unit: UnitHours, value: v} }

// Minutes returns a duration of v minutes.
func Minutes(v float64) Duration { return Duration{unit: UnitMinutes, value: v} }

// HoursAndMinutes returns a duration where the integer part of v counts hours
// and the fractional part is a fraction of an hour (1.75 is 1h45m).
func HoursAndMinutes(v float64) Duration { return Duration{unit: UnitHoursAndMinutes, value: v} }

// NewDuration builds a Duration from its wire form.
func NewDuration(value float64, unit DurationUnit) (Duration, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Duration{}, fmt.Errorf("invalid duration value %v", value)
	}
	switch unit {
	case UnitHours:
		return Hours(value), nil
	case UnitMinutes:
		return Minutes(value), nil
	case UnitHoursAndMinutes:
		return HoursAndMinutes(value), nil
	default:
		return Duration{}, fmt.Errorf("%w: %q", ErrUnknownDurationUnit, unit)
	}
}

// Unit returns the unit the duration was expressed in.
func (d Duration) Unit() DurationUnit { return d.unit }

// Value returns the raw value in the duration's unit.
func (d Duration) Value() float64 { return d.value }

// Minutes normalises the duration to whole minutes.
func (d Duration) Minutes() int {
	switch d.unit {
	case UnitHours:
		return int(math.Round(d.value * 60))
	case UnitMinutes:
		return int(math.Round(d.value))
	case UnitHoursAndMinutes:
		whole, frac := math.Modf(d.value)
		return int(whole)*60 + int(math.Round(frac*60))
	}
	return 0
}
