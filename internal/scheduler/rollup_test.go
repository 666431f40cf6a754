package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/storage"
)

// Tuesday 2024-03-05 09:15 UTC.
var jobNow = time.Date(2024, time.March, 5, 9, 15, 0, 0, time.UTC)

func tod(s string) calendar.TimeOfDay { return calendar.MustTimeOfDay(s) }

func seed(t *testing.T) *storage.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	today := calendar.DateOf(jobNow)
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, store.InsertSessions(ctx, []storage.SessionOccurrence{
		{Date: yesterday, Start: tod("06:00"), End: tod("07:00"), BookedSlots: 10, AttendedCount: 9},
		{Date: yesterday, Start: tod("18:00"), End: tod("19:00"), BookedSlots: 20, AttendedCount: 15},
		{Date: today, Start: tod("06:00"), End: tod("07:00"), BookedSlots: 8, AttendedCount: 8},
		{Date: today, Start: tod("08:00"), End: tod("09:00"), BookedSlots: 12, AttendedCount: 10},
		// still running at 09:15
		{Date: today, Start: tod("09:00"), End: tod("10:00"), BookedSlots: 5, AttendedCount: 3},
	}))
	require.NoError(t, store.InsertBookings(ctx, []storage.Booking{
		{UserID: "u1", SessionDate: yesterday, Status: storage.StatusCancelledLate},
		{UserID: "u2", SessionDate: yesterday, Status: storage.StatusWaitlisted},
	}))
	return store
}

func newJob(store storage.Repository) *RollupJob {
	return NewRollupJob(store, time.UTC, WithJobClock(func() time.Time { return jobNow }))
}

func TestRollupJob_WritesCompletedBucketsAndDailySummary(t *testing.T) {
	ctx := context.Background()
	store := seed(t)

	res, err := newJob(store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RollupResult{HourlyWritten: 4, DailyWritten: true}, res)

	today := calendar.DateOf(jobNow)
	rows, err := store.ListSamples(ctx, storage.SampleFilter{Range: calendar.DayRange(today)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, tod("06:00"), rows[0].Start)
	assert.Equal(t, tod("08:00"), rows[1].Start)
	assert.Equal(t, 2, rows[1].NoShowCount)

	daily, err := store.ListSamples(ctx, storage.SampleFilter{
		Range: calendar.DayRange(today.AddDate(0, 0, -1)),
		Kind:  storage.DailySummaries,
	})
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 24, daily[0].DailyOccupancy)
	assert.Equal(t, 15, daily[0].HourlyOccupancy)
	assert.Equal(t, "18:00", daily[0].PeakTime)
	assert.Equal(t, 1, daily[0].CancelledCount)
	assert.Equal(t, 1, daily[0].WaitlistCount)
}

func TestRollupJob_RunTwiceWritesNoDuplicates(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	job := newJob(store)

	_, err := job.Run(ctx)
	require.NoError(t, err)
	second, err := job.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, RollupResult{HourlySkipped: 4}, second)

	n, err := store.CountSamples(ctx, storage.SampleFilter{Kind: storage.AllSamples})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestRollupJob_PicksUpBucketsAsTheyComplete(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	now := jobNow
	job := NewRollupJob(store, time.UTC, WithJobClock(func() time.Time { return now }))

	_, err := job.Run(ctx)
	require.NoError(t, err)

	now = jobNow.Add(time.Hour)
	res, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.HourlyWritten)
	assert.False(t, res.DailyWritten)
}

func TestRollupJob_MalformedSessionDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	yesterday := calendar.DateOf(jobNow).AddDate(0, 0, -1)
	require.NoError(t, store.InsertSessions(ctx, []storage.SessionOccurrence{
		{Date: yesterday, Start: tod("22:00"), End: tod("01:00"), BookedSlots: 3, AttendedCount: 2},
	}))
	job := newJob(store)

	res, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RollupResult{HourlyWritten: 4, DailyWritten: true}, res)

	second, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RollupResult{HourlySkipped: 4}, second)
}

func TestRollupJob_EmptyDay(t *testing.T) {
	res, err := newJob(storage.NewMemoryStore()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RollupResult{}, res)
}

func TestRollupJob_StoreErrors(t *testing.T) {
	for _, method := range []string{"ListSessions", "CountSamples", "InsertSamples", "ListBookings"} {
		t.Run(method, func(t *testing.T) {
			store := seed(t)
			boom := errors.New("io error")
			store.FailOn(method, boom)

			_, err := newJob(store).Run(context.Background())
			assert.ErrorIs(t, err, boom)
		})
	}
}
