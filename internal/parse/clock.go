package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// bookingLayouts are tried in order after RFC3339.
var bookingLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ClockTime parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
// Seconds are accepted but ignored. "24:00" is allowed as an end-of-day marker.
func ClockTime(raw string) (int, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("unable to parse clock time: %q", raw)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("clock time out of range: %q", raw)
	}
	if m[3] != "" {
		if sec, _ := strconv.Atoi(m[3]); sec > 59 {
			return 0, fmt.Errorf("clock time out of range: %q", raw)
		}
	}
	return hour*60 + minute, nil
}

// BookingStart parses a booking start timestamp. Values carrying an offset
// (RFC3339) are converted into loc; naive values are interpreted in loc.
func BookingStart(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty booking start time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range bookingLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse booking start time: %q", raw)
}
