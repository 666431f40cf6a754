package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/occupancy/internal/calendar"
)

func TestMemoryStore_FiltersLikeSQLite(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	day := calendar.NewDate(2024, time.June, 1)

	require.NoError(t, mem.InsertSamples(ctx, []OccupancySample{
		{Date: day, Start: tod("07:00"), End: tod("08:00")},
		{Date: day, Start: tod("06:00"), End: tod("07:00")},
		{Date: day, Start: calendar.Midnight, End: calendar.EndOfDay},
		{Date: day.AddDate(0, 0, 1), Start: tod("06:00"), End: tod("07:00")},
	}))

	hourly, err := mem.ListSamples(ctx, SampleFilter{Range: calendar.DayRange(day)})
	require.NoError(t, err)
	require.Len(t, hourly, 2)
	assert.Equal(t, tod("06:00"), hourly[0].Start)

	daily, err := mem.CountSamples(ctx, SampleFilter{Kind: DailySummaries})
	require.NoError(t, err)
	assert.Equal(t, int64(1), daily)
}

func TestMemoryStore_FailOn(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	mem.FailOn("ListBookings", boom)
	_, err := mem.ListBookings(ctx, BookingFilter{})
	assert.ErrorIs(t, err, boom)

	// Other operations are unaffected
	_, err = mem.ListSessions(ctx, calendar.DateRange{})
	assert.NoError(t, err)

	mem.FailOn("ListBookings", nil)
	_, err = mem.ListBookings(ctx, BookingFilter{})
	assert.NoError(t, err)
}

func TestBookingStatus_IsCancelled(t *testing.T) {
	tests := []struct {
		status   BookingStatus
		expected bool
	}{
		{StatusCancelled, true},
		{StatusCancelledLate, true},
		{StatusCancelledByAdmin, true},
		{BookingStatus("cancelled_weather"), true},
		{StatusConfirmed, false},
		{StatusWaitlisted, false},
		{BookingStatus("Cancelled"), false},
		{BookingStatus("not_cancelled"), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.status.IsCancelled(), "status %q", tc.status)
	}
}

func TestMemoryStore_InsertUsersUpserts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.InsertUsers(ctx, []User{{ID: "a", Role: "member"}, {ID: "b", Role: "member"}}))
	require.NoError(t, m.InsertUsers(ctx, []User{{ID: "b", Role: "staff"}}))

	members, err := m.CountUsers(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, int64(1), members)

	all, err := m.CountUsers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)
}
