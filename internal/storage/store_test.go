package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/occupancy/internal/calendar"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

func tod(s string) calendar.TimeOfDay { return calendar.MustTimeOfDay(s) }

func TestInsertBookings_ListBookingsByRange(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	booked := time.Date(2024, time.February, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBookings(ctx, []Booking{
		{UserID: "u1", SessionDate: calendar.NewDate(2024, time.January, 31), BookingTime: booked},
		{UserID: "u1", SessionDate: calendar.NewDate(2024, time.February, 1), BookingTime: booked},
		{UserID: "u2", SessionDate: calendar.NewDate(2024, time.February, 29), BookingTime: booked, Status: StatusCancelledLate},
		{UserID: "u2", SessionDate: calendar.NewDate(2024, time.March, 1), BookingTime: booked},
	}))

	got, err := store.ListBookings(ctx, BookingFilter{Range: calendar.MonthRange(calendar.NewDate(2024, time.February, 10))})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, calendar.NewDate(2024, time.February, 1), got[0].SessionDate)
	assert.Equal(t, StatusConfirmed, got[0].Status)
	assert.Equal(t, StatusCancelledLate, got[1].Status)
	assert.True(t, got[1].BookingTime.Equal(booked))

	byUser, err := store.ListBookings(ctx, BookingFilter{UserID: "u2"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	upTo, err := store.ListBookings(ctx, BookingFilter{Range: calendar.DateRange{To: calendar.NewDate(2024, time.February, 1)}})
	require.NoError(t, err)
	assert.Len(t, upTo, 2)
}

func TestListBookings_UnparsableFieldsLeftZero(t *testing.T) {
	store, db := openTestStore(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO bookings (user_id, session_date, booking_time, status)
		VALUES ('u1', '2024-02-10', 'yesterday-ish', 'confirmed')`)
	require.NoError(t, err)

	got, err := store.ListBookings(ctx, BookingFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].BookingTime.IsZero())
	assert.Equal(t, calendar.NewDate(2024, time.February, 10), got[0].SessionDate)
}

func TestInsertSessions_OverrideCapacityRoundtrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	override := 20
	require.NoError(t, store.InsertSessions(ctx, []SessionOccurrence{
		{Date: calendar.NewDate(2024, time.May, 3), Start: tod("09:00"), End: tod("10:00"), BookedSlots: 12, AttendedCount: 10},
		{Date: calendar.NewDate(2024, time.May, 3), Start: tod("08:00"), End: tod("09:00"), BookedSlots: 8, AttendedCount: 8, OverrideCapacity: &override},
	}))

	got, err := store.ListSessions(ctx, calendar.DayRange(calendar.NewDate(2024, time.May, 3)))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by start time
	assert.Equal(t, tod("08:00"), got[0].Start)
	require.NotNil(t, got[0].OverrideCapacity)
	assert.Equal(t, 20, got[0].EffectiveCapacity(50))
	assert.Nil(t, got[1].OverrideCapacity)
	assert.Equal(t, 50, got[1].EffectiveCapacity(50))
	assert.Equal(t, "scheduled", got[1].Status)
}

func TestInsertSamples_HourlyAndDailyStayDistinct(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	day := calendar.NewDate(2024, time.June, 1)

	samples := []OccupancySample{
		{Date: day, Start: tod("06:00"), End: tod("07:00"), HourlyOccupancy: 7, BookedCount: 9, PeakTime: "06:00"},
		{Date: day, Start: calendar.Midnight, End: calendar.EndOfDay, HourlyOccupancy: 7, DailyOccupancy: 7},
	}
	require.NoError(t, store.InsertSamples(ctx, samples))
	assert.NotEmpty(t, samples[0].ID, "insert should assign ids")
	assert.NotEqual(t, samples[0].ID, samples[1].ID)

	hourly, err := store.ListSamples(ctx, SampleFilter{Range: calendar.DayRange(day)})
	require.NoError(t, err)
	require.Len(t, hourly, 1)
	assert.False(t, hourly[0].IsDailySummary())
	assert.Equal(t, "06:00", hourly[0].PeakTime)

	daily, err := store.ListSamples(ctx, SampleFilter{Range: calendar.DayRange(day), Kind: DailySummaries})
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.True(t, daily[0].IsDailySummary())
	assert.Empty(t, daily[0].PeakTime)

	all, err := store.CountSamples(ctx, SampleFilter{Kind: AllSamples})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)
}

func TestInsertSamples_DuplicatesAreAppended(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	day := calendar.NewDate(2024, time.June, 1)
	start, end := tod("06:00"), tod("07:00")

	for i := 0; i < 2; i++ {
		require.NoError(t, store.InsertSamples(ctx, []OccupancySample{
			{Date: day, Start: start, End: end, HourlyOccupancy: 3},
		}))
	}

	n, err := store.CountSamples(ctx, SampleFilter{Range: calendar.DayRange(day), Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestInsertSamples_ErrorRollsBack(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	day := calendar.NewDate(2024, time.June, 1)

	err := store.InsertSamples(ctx, []OccupancySample{
		{ID: "same", Date: day, Start: tod("06:00"), End: tod("07:00")},
		{ID: "same", Date: day, Start: tod("07:00"), End: tod("08:00")},
	})
	assert.Error(t, err)

	n, err := store.CountSamples(ctx, SampleFilter{Kind: AllSamples})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCountUsers(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertUsers(ctx, []User{
		{ID: "a"}, {ID: "b", Role: "member"}, {ID: "c", Role: "admin"},
	}))
	// Upsert changes role in place
	require.NoError(t, store.InsertUsers(ctx, []User{{ID: "c", Role: "member"}}))

	members, err := store.CountUsers(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, int64(3), members)

	all, err := store.CountUsers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all)
}

func TestGetStats(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	stats, err := store.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalBookings)
	assert.True(t, stats.OldestRollup.IsZero())
	assert.Equal(t, 1, stats.SchemaVersion)
	assert.Greater(t, stats.DatabaseSizeBytes, int64(0))

	require.NoError(t, store.InsertSamples(ctx, []OccupancySample{
		{Date: calendar.NewDate(2024, time.June, 1), Start: tod("06:00"), End: tod("07:00")},
		{Date: calendar.NewDate(2024, time.June, 3), Start: calendar.Midnight, End: calendar.EndOfDay},
	}))

	stats, err = store.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalHourlyRollups)
	assert.Equal(t, int64(1), stats.TotalDailySummaries)
	assert.Equal(t, calendar.NewDate(2024, time.June, 1), stats.OldestRollup)
	assert.Equal(t, calendar.NewDate(2024, time.June, 3), stats.NewestRollup)
}
