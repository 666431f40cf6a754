package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/config"
	"github.com/runnerr0/occupancy/internal/storage"
)

// Wednesday 2024-03-06 10:30 UTC.
var testNow = time.Date(2024, time.March, 6, 10, 30, 0, 0, time.UTC)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates a migrated in-memory store. A single connection
// keeps every query on the same in-memory database.
func openTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).WithJournalMode("memory").Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

// testConfig is the default config pinned to UTC.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Storage.Path = os.TempDir()
	// Nothing listens here, so status reports the server as down.
	cfg.Server.Port = 1
	return cfg
}

func newTestEngine(t *testing.T, repo storage.Repository) *analytics.Engine {
	t.Helper()
	settings, err := testConfig().Settings()
	require.NoError(t, err)
	e, err := analytics.NewEngine(repo, settings, analytics.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return e
}

func tod(s string) calendar.TimeOfDay { return calendar.MustTimeOfDay(s) }

// seedStore writes one user base, bookings this and last month, today's
// sessions and one hourly rollup.
func seedStore(t *testing.T, store *storage.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	today := calendar.DateOf(testNow)
	feb := calendar.NewDate(2024, time.February, 20)

	require.NoError(t, store.InsertUsers(ctx, []storage.User{
		{ID: "alice", Role: "member"},
		{ID: "bob", Role: "member"},
		{ID: "sam", Role: "staff"},
	}))
	require.NoError(t, store.InsertBookings(ctx, []storage.Booking{
		{UserID: "alice", SessionDate: today, BookingTime: testNow.Add(-72 * time.Hour), Status: storage.StatusAttended},
		{UserID: "bob", SessionDate: today, BookingTime: testNow.Add(-2 * time.Hour), Status: storage.StatusCancelled},
		{UserID: "bob", SessionDate: feb, BookingTime: feb, Status: storage.StatusAttended},
	}))
	require.NoError(t, store.InsertSessions(ctx, []storage.SessionOccurrence{
		{Date: today, Start: tod("08:00"), End: tod("09:00"), BookedSlots: 10, AttendedCount: 9},
		{Date: today, Start: tod("10:00"), End: tod("11:00"), BookedSlots: 12, AttendedCount: 11},
	}))
	require.NoError(t, store.InsertSamples(ctx, []storage.OccupancySample{
		{Date: today, Start: tod("08:00"), End: tod("09:00"), HourlyOccupancy: 9, BookedCount: 10, NoShowCount: 1},
	}))
}
