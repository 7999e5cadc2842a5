package schedule

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"venue-admin-backend/internal/model"
)

// Input is everything needed to lay out one day.
type Input struct {
	Spaces   []model.Space
	Bookings []model.Booking
	// Day selects the calendar date; its location is used to interpret
	// booking start times.
	Day             time.Time
	IntervalMinutes int
	DayStartHour    int
	DayEndHour      int
}

type cellKey struct {
	spaceID string
	minute  int
}

// Grid is the laid-out day schedule.
type Grid struct {
	Day             time.Time
	IntervalMinutes int
	Slots           []TimeSlot
	VisibleSlots    []TimeSlot
	SpaceIDs        []string
	Warnings        []DataQualityWarning

	cells map[cellKey]Cell
}

// CellOf returns the occupancy of (spaceID, slot). Unknown pairs are Empty.
func (g *Grid) CellOf(spaceID string, slot TimeSlot) Cell {
	if c, ok := g.cells[cellKey{spaceID, slot.MinuteOfDay()}]; ok {
		return c
	}
	return Cell{Kind: Empty}
}

// LogWarnings reports the build's data-quality warnings once.
func (g *Grid) LogWarnings(log *zap.SugaredLogger) {
	if log == nil || len(g.Warnings) == 0 {
		return
	}
	msgs := make([]string, 0, len(g.Warnings))
	for _, w := range g.Warnings {
		msgs = append(msgs, w.String())
	}
	log.Warnw("schedule items excluded due to bad data",
		"day", g.Day.Format(time.DateOnly), "count", len(g.Warnings), "items", msgs)
}

// placedBooking is a booking that passed validation for the requested day.
type placedBooking struct {
	booking  *model.Booking
	start    int
	duration int
}

// BuildGrid lays the day's bookings and break windows onto the slot grid.
//
// For each (space, slot) the first qualifying booking, in input order, that
// starts at the slot yields a BookingOrigin spanning ceil(duration/interval)
// rows, and the first one whose span strictly covers the slot yields a
// BookingContinuation. Break windows win over bookings on the same cell.
// Spans are clipped where another block takes over and at the end of the
// day. Only slots where some space is occupied are visible.
//
// Bookings with unparseable start times, unknown units or non-positive
// durations are left out and reported in Grid.Warnings.
func BuildGrid(in Input) (*Grid, error) {
	slots, err := GenerateSlots(in.DayStartHour, in.DayEndHour, in.IntervalMinutes)
	if err != nil {
		return nil, err
	}
	day := in.Day
	if day.IsZero() {
		return nil, fmt.Errorf("%w: day is required", ErrInvalidLayout)
	}

	g := &Grid{
		Day:             day,
		IntervalMinutes: in.IntervalMinutes,
		Slots:           slots,
		SpaceIDs:        make([]string, 0, len(in.Spaces)),
		cells:           make(map[cellKey]Cell),
	}

	bySpace, warnings := groupBookings(in.Bookings, day)
	g.Warnings = append(g.Warnings, warnings...)

	for i := range in.Spaces {
		space := &in.Spaces[i]
		g.SpaceIDs = append(g.SpaceIDs, space.ID)

		row := make([]Cell, len(slots))
		placeBookings(row, slots, bySpace[space.ID], in.IntervalMinutes)

		breaks, bw := ResolveBreaks(space, day, slots, in.IntervalMinutes)
		g.Warnings = append(g.Warnings, bw...)
		byMinute := make(map[int]Cell, len(breaks))
		for _, p := range breaks {
			byMinute[p.Slot.MinuteOfDay()] = p.Cell
		}
		for j, slot := range slots {
			if c, ok := byMinute[slot.MinuteOfDay()]; ok {
				row[j] = c
			}
		}

		clipSpans(row)
		for j, c := range row {
			if c.Kind != Empty {
				g.cells[cellKey{space.ID, slots[j].MinuteOfDay()}] = c
			}
		}
	}

	for _, slot := range slots {
		for _, id := range g.SpaceIDs {
			if _, ok := g.cells[cellKey{id, slot.MinuteOfDay()}]; ok {
				g.VisibleSlots = append(g.VisibleSlots, slot)
				break
			}
		}
	}
	return g, nil
}

// groupBookings groups the bookings that occupy the grid on day by space,
// keeping input order. Bookings on other days are skipped before their
// duration is checked, so only the day's own bad data is reported.
func groupBookings(bookings []model.Booking, day time.Time) (map[string][]placedBooking, []DataQualityWarning) {
	loc := day.Location()
	y, m, d := day.Date()

	var warnings []DataQualityWarning
	bySpace := make(map[string][]placedBooking)
	for i := range bookings {
		b := &bookings[i]
		if !b.Status.OccupiesGrid() {
			continue
		}
		warn := func(reason string) {
			warnings = append(warnings, DataQualityWarning{SpaceID: b.SpaceID, BookingID: b.ID, Reason: reason})
		}

		start, err := b.Start(loc)
		if err != nil {
			warn(err.Error())
			continue
		}
		if sy, sm, sd := start.Date(); sy != y || sm != m || sd != d {
			continue
		}
		dur, err := b.Duration()
		if err != nil {
			warn(err.Error())
			continue
		}
		minutes := dur.Minutes()
		if minutes <= 0 {
			warn(fmt.Sprintf("non-positive duration %v %s", b.DurationValue, b.DurationUnit))
			continue
		}
		bySpace[b.SpaceID] = append(bySpace[b.SpaceID], placedBooking{
			booking:  b,
			start:    start.Hour()*60 + start.Minute(),
			duration: minutes,
		})
	}
	return bySpace, warnings
}

// placeBookings fills row slot by slot. The first booking, in order, that
// starts at the slot makes it an origin; only when none starts there does the
// first booking covering the slot make it a continuation.
func placeBookings(row []Cell, slots []TimeSlot, bookings []placedBooking, intervalMinutes int) {
	for j, slot := range slots {
		m := slot.MinuteOfDay()
		row[j] = Cell{Kind: Empty}
		if i := slices.IndexFunc(bookings, func(pb placedBooking) bool { return pb.start == m }); i >= 0 {
			row[j] = Cell{
				Kind:    BookingOrigin,
				Booking: bookings[i].booking,
				RowSpan: ceilDiv(bookings[i].duration, intervalMinutes),
			}
			continue
		}
		if i := slices.IndexFunc(bookings, func(pb placedBooking) bool { return m > pb.start && m < pb.start+pb.duration }); i >= 0 {
			row[j] = Cell{Kind: BookingContinuation, Booking: bookings[i].booking}
		}
	}
}

// clipSpans walks row top to bottom and sizes every block to the
// continuation cells directly below its origin, never past its nominal
// RowSpan or the end of the row. A continuation that no open block can
// absorb becomes the origin of a block spanning its own run.
func clipSpans(row []Cell) {
	open, want := -1, 0
	for j := range row {
		c := row[j]
		switch {
		case c.IsOrigin():
			open, want = j, c.RowSpan
			row[j].RowSpan = 1
		case c.IsContinuation() && open >= 0 && row[open].RowSpan < want && row[open].absorbs(c):
			row[open].RowSpan++
		case c.IsContinuation():
			// Origin hidden by a break, an overlapping booking, the day
			// window or the slot grid.
			want = 1
			for k := j + 1; k < len(row) && row[k].sameItem(c); k++ {
				want++
			}
			if c.Kind == BookingContinuation {
				c.Kind = BookingOrigin
			} else {
				c.Kind = BreakOrigin
			}
			c.RowSpan = 1
			row[j] = c
			open = j
		default:
			open = -1
		}
	}
}
