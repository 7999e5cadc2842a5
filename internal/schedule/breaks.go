package schedule

import (
	"fmt"
	"time"

	"venue-admin-backend/internal/model"
	"venue-admin-backend/internal/parse"
)

// BreakPlacement is one slot occupied by a break window.
type BreakPlacement struct {
	Slot TimeSlot
	Cell Cell
}

// ResolveBreaks maps the space's recurring break windows onto the given
// slots for day's weekday. A slot inside [start, end) is occupied; the slot
// equal to start is the origin. When windows overlap, the earlier window in
// the space's list owns the slot. Placements are ordered by slot.
func ResolveBreaks(space *model.Space, day time.Time, slots []TimeSlot, intervalMinutes int) ([]BreakPlacement, []DataQualityWarning) {
	type span struct {
		window     *model.BreakWindow
		start, end int
	}

	var (
		spans    []span
		warnings []DataQualityWarning
	)
	weekday := day.Weekday()
	for i := range space.BreakWindows {
		w := &space.BreakWindows[i]
		if !w.Applies(weekday) {
			continue
		}
		start, err := parse.ClockTime(w.StartTime)
		if err != nil {
			warnings = append(warnings, DataQualityWarning{SpaceID: space.ID, Reason: err.Error()})
			continue
		}
		end, err := parse.ClockTime(w.EndTime)
		if err != nil {
			warnings = append(warnings, DataQualityWarning{SpaceID: space.ID, Reason: err.Error()})
			continue
		}
		if end <= start {
			warnings = append(warnings, DataQualityWarning{
				SpaceID: space.ID,
				Reason:  fmt.Sprintf("break window ends at %s before it starts at %s", w.EndTime, w.StartTime),
			})
			continue
		}
		spans = append(spans, span{window: w, start: start, end: end})
	}
	if len(spans) == 0 {
		return nil, warnings
	}

	var placements []BreakPlacement
	for i, slot := range slots {
		m := slot.MinuteOfDay()
		for _, sp := range spans {
			if m < sp.start || m >= sp.end {
				continue
			}
			cell := Cell{Kind: BreakContinuation, Window: sp.window}
			if m == sp.start {
				cell.Kind = BreakOrigin
				cell.RowSpan = min(ceilDiv(sp.end-sp.start, intervalMinutes), len(slots)-i)
			}
			placements = append(placements, BreakPlacement{Slot: slot, Cell: cell})
			break
		}
	}
	return placements, warnings
}
