package analytics

import (
	"time"

	"github.com/runnerr0/occupancy/internal/calendar"
)

// Slot is a time range with its live occupancy.
type Slot struct {
	Start   calendar.TimeOfDay `json:"-"`
	End     calendar.TimeOfDay `json:"-"`
	Current int                `json:"current"`
}

// Resolution is the slot chosen for a reference time. Slot is nil and
// Index is -1 when there were no slots.
type Resolution struct {
	Occupancy int
	Slot      *Slot
	Index     int
	Exact     bool
}

// ResolveOccupancy picks the slot covering now's time of day, using the
// half-open range [Start, End). When none covers it, the slot with the
// closest start or end boundary wins; ties go to the earliest slot in
// input order.
func ResolveOccupancy(slots []Slot, now time.Time) Resolution {
	if len(slots) == 0 {
		return Resolution{Index: -1}
	}

	clock := calendar.ClockOf(now)
	for i := range slots {
		if slots[i].Start <= clock && clock < slots[i].End {
			return Resolution{Occupancy: slots[i].Current, Slot: &slots[i], Index: i, Exact: true}
		}
	}

	best, bestDist := 0, boundaryDistance(slots[0], clock)
	for i := 1; i < len(slots); i++ {
		if d := boundaryDistance(slots[i], clock); d < bestDist {
			best, bestDist = i, d
		}
	}
	return Resolution{Occupancy: slots[best].Current, Slot: &slots[best], Index: best}
}

func boundaryDistance(s Slot, clock calendar.TimeOfDay) int {
	return min(absInt(int(clock-s.Start)), absInt(int(clock-s.End)))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
