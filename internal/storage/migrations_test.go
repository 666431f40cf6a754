package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"users",
		"bookings",
		"session_occurrences",
		"analytics",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	expectedIndexes := []string{
		"idx_bookings_session_date",
		"idx_bookings_user",
		"idx_sessions_date",
		"idx_analytics_date",
		"idx_analytics_date_slot",
		"idx_users_role",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	version, err := runner.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestMigrationRunner_VersionOnFreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	_, err := db.Exec(`CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL, applied_at DATETIME)`)
	require.NoError(t, err)

	version, err := runner.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestMigrationRunner_RejectsNegativeOccupancy(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).WithJournalMode("delete").Run())

	_, err := db.Exec(`INSERT INTO analytics (id, date, start_time_of_day, end_time_of_day, hourly_occupancy)
		VALUES ('x', '2024-01-01', '06:00', '07:00', -1)`)
	assert.Error(t, err)
}
