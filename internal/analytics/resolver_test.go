package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hhmm string) time.Time {
	t := tod(hhmm)
	return time.Date(2024, time.March, 4, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func morningSlots() []Slot {
	return []Slot{
		{Start: tod("08:00"), End: tod("09:00"), Current: 5},
		{Start: tod("09:00"), End: tod("10:00"), Current: 9},
	}
}

func TestResolveOccupancy_ExactMatch(t *testing.T) {
	res := ResolveOccupancy(morningSlots(), at("08:30"))
	assert.Equal(t, 5, res.Occupancy)
	assert.True(t, res.Exact)
	require.NotNil(t, res.Slot)
	assert.Equal(t, tod("08:00"), res.Slot.Start)
}

func TestResolveOccupancy_HalfOpenBoundary(t *testing.T) {
	// 09:00 is the end of the first slot and the start of the second
	res := ResolveOccupancy(morningSlots(), at("09:00"))
	assert.Equal(t, 9, res.Occupancy)
	assert.Equal(t, 1, res.Index)
}

func TestResolveOccupancy_NearestBeforeOpening(t *testing.T) {
	res := ResolveOccupancy(morningSlots(), at("07:00"))
	assert.Equal(t, 5, res.Occupancy)
	assert.False(t, res.Exact)
	assert.Equal(t, 0, res.Index)
}

func TestResolveOccupancy_NearestAfterClosing(t *testing.T) {
	res := ResolveOccupancy(morningSlots(), at("12:00"))
	assert.Equal(t, 9, res.Occupancy)
}

func TestResolveOccupancy_TieGoesToFirstInInputOrder(t *testing.T) {
	slots := []Slot{
		{Start: tod("10:00"), End: tod("11:00"), Current: 1},
		{Start: tod("06:00"), End: tod("07:00"), Current: 2},
	}
	// 08:30 is 90 minutes from both 07:00 and 10:00
	res := ResolveOccupancy(slots, at("08:30"))
	assert.Equal(t, 1, res.Occupancy)
	assert.Equal(t, 0, res.Index)

	reversed := []Slot{slots[1], slots[0]}
	res = ResolveOccupancy(reversed, at("08:30"))
	assert.Equal(t, 2, res.Occupancy)
}

func TestResolveOccupancy_Empty(t *testing.T) {
	res := ResolveOccupancy(nil, at("08:30"))
	assert.Equal(t, 0, res.Occupancy)
	assert.Nil(t, res.Slot)
	assert.Equal(t, -1, res.Index)
}
