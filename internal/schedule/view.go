package schedule

import (
	"time"

	"venue-admin-backend/internal/model"
)

// CellView is the rendered form of a cell. Continuations carry only their
// kind; the consumer draws nothing for them.
type CellView struct {
	SpaceID string             `json:"spaceId"`
	Kind    CellKind           `json:"kind"`
	RowSpan int                `json:"rowSpan,omitempty"`
	Booking *model.Booking     `json:"booking,omitempty"`
	EndTime string             `json:"endTime,omitempty"`
	Window  *model.BreakWindow `json:"breakWindow,omitempty"`
}

// RowView is one visible slot.
type RowView struct {
	Slot  TimeSlot   `json:"slot"`
	Cells []CellView `json:"cells"`
}

// View is the JSON shape served to schedule consumers.
type View struct {
	Date            string               `json:"date"`
	IntervalMinutes int                  `json:"intervalMinutes"`
	Spaces          []string             `json:"spaces"`
	Rows            []RowView            `json:"rows"`
	Warnings        []DataQualityWarning `json:"warnings,omitempty"`
}

// View renders one row per visible slot with a cell per space, in space order.
func (g *Grid) View() View {
	v := View{
		Date:            g.Day.Format(time.DateOnly),
		IntervalMinutes: g.IntervalMinutes,
		Spaces:          g.SpaceIDs,
		Rows:            make([]RowView, 0, len(g.VisibleSlots)),
		Warnings:        g.Warnings,
	}
	loc := g.Day.Location()
	for _, slot := range g.VisibleSlots {
		row := RowView{Slot: slot, Cells: make([]CellView, 0, len(g.SpaceIDs))}
		for _, id := range g.SpaceIDs {
			c := g.CellOf(id, slot)
			cv := CellView{SpaceID: id, Kind: c.Kind}
			switch c.Kind {
			case BookingOrigin:
				cv.RowSpan = c.RowSpan
				cv.Booking = c.Booking
				if end, err := c.Booking.End(loc); err == nil {
					cv.EndTime = end.Format("15:04")
				}
			case BreakOrigin:
				cv.RowSpan = c.RowSpan
				cv.Window = c.Window
			}
			row.Cells = append(row.Cells, cv)
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}
