package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTime(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Hours and minutes", raw: "12:00", expected: 720},
		{name: "Single digit hour", raw: "9:30", expected: 570},
		{name: "With seconds", raw: "13:45:00", expected: 825},
		{name: "Surrounding spaces", raw: " 08:15 ", expected: 495},
		{name: "End of day marker", raw: "24:00", expected: 1440},
		{name: "Midnight", raw: "00:00", expected: 0},
		{name: "Past end of day", raw: "24:30", expectErr: true},
		{name: "Minute out of range", raw: "10:60", expectErr: true},
		{name: "Second out of range", raw: "10:00:61", expectErr: true},
		{name: "Not a time", raw: "noon", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			minutes, err := ClockTime(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, minutes)
			}
		})
	}
}

func TestBookingStart(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	testCases := []struct {
		name      string
		raw       string
		expected  time.Time
		expectErr bool
	}{
		{
			name:     "RFC3339 converted into location",
			raw:      "2026-10-15T11:00:00Z",
			expected: time.Date(2026, 10, 15, 13, 0, 0, 0, berlin),
		},
		{
			name:     "Naive ISO without seconds",
			raw:      "2026-10-15T13:00",
			expected: time.Date(2026, 10, 15, 13, 0, 0, 0, berlin),
		},
		{
			name:     "Space separated with seconds",
			raw:      "2026-10-15 09:30:00",
			expected: time.Date(2026, 10, 15, 9, 30, 0, 0, berlin),
		},
		{
			name:     "Space separated without seconds",
			raw:      "2026-10-15 09:30",
			expected: time.Date(2026, 10, 15, 9, 30, 0, 0, berlin),
		},
		{name: "Empty", raw: "  ", expectErr: true},
		{name: "Garbage", raw: "tomorrow at nine", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, err := BookingStart(tc.raw, berlin)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.True(t, tc.expected.Equal(start), "expected %v, got %v", tc.expected, start)
			}
		})
	}
}
