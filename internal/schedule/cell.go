package schedule

import (
	"fmt"

	"venue-admin-backend/internal/model"
)

// CellKind tags what occupies a (space, slot) pair.
type CellKind string

const (
	Empty               CellKind = "empty"
	BookingOrigin       CellKind = "booking"
	BookingContinuation CellKind = "booking-continuation"
	BreakOrigin         CellKind = "break"
	BreakContinuation   CellKind = "break-continuation"
)

// Cell is the occupancy decision for one (space, slot) pair. Booking is set
// for both booking kinds and Window for both break kinds; RowSpan is only
// meaningful on origins.
type Cell struct {
	Kind    CellKind
	Booking *model.Booking
	Window  *model.BreakWindow
	RowSpan int
}

// IsOrigin reports whether the cell starts a rendered block.
func (c Cell) IsOrigin() bool {
	return c.Kind == BookingOrigin || c.Kind == BreakOrigin
}

// IsContinuation reports whether the cell is covered by an earlier origin.
func (c Cell) IsContinuation() bool {
	return c.Kind == BookingContinuation || c.Kind == BreakContinuation
}

// absorbs reports whether the continuation cont can extend the block the
// origin c starts. A booking block absorbs any booking continuation, so a
// booking starting inside another one keeps its full span; break blocks only
// absorb their own window.
func (c Cell) absorbs(cont Cell) bool {
	switch c.Kind {
	case BookingOrigin:
		return cont.Kind == BookingContinuation
	case BreakOrigin:
		return cont.Kind == BreakContinuation && cont.Window == c.Window
	}
	return false
}

// sameItem reports whether c continues the same booking or window as cont.
func (c Cell) sameItem(cont Cell) bool {
	return c.Kind == cont.Kind && c.Booking == cont.Booking && c.Window == cont.Window
}

// DataQualityWarning describes an item left off the grid because its data
// could not be interpreted. It never aborts a build.
type DataQualityWarning struct {
	SpaceID   string `json:"spaceId"`
	BookingID string `json:"bookingId,omitempty"`
	Reason    string `json:"reason"`
}

func (w DataQualityWarning) String() string {
	if w.BookingID != "" {
		return fmt.Sprintf("booking %s on space %s: %s", w.BookingID, w.SpaceID, w.Reason)
	}
	return fmt.Sprintf("break window on space %s: %s", w.SpaceID, w.Reason)
}
