package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the booking, session and analytics tables. users,
// bookings and session_occurrences are owned by upstream flows; analytics
// is append-only and written by the rollup writer. There is deliberately
// no unique key on analytics: duplicate suppression is the caller's job.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			user_role  TEXT NOT NULL DEFAULT 'member',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      TEXT NOT NULL,
			session_date TEXT NOT NULL,
			booking_time TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'confirmed',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS session_occurrences (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			date              TEXT NOT NULL,
			start_time        TEXT NOT NULL,
			end_time          TEXT NOT NULL,
			booked_slots      INTEGER NOT NULL DEFAULT 0 CHECK (booked_slots >= 0),
			attended_count    INTEGER NOT NULL DEFAULT 0 CHECK (attended_count >= 0),
			override_capacity INTEGER CHECK (override_capacity IS NULL OR override_capacity >= 0),
			status            TEXT NOT NULL DEFAULT 'scheduled'
		)`,

		`CREATE TABLE IF NOT EXISTS analytics (
			id                TEXT PRIMARY KEY,
			date              TEXT NOT NULL,
			start_time_of_day TEXT NOT NULL,
			end_time_of_day   TEXT NOT NULL,
			hourly_occupancy  INTEGER NOT NULL DEFAULT 0 CHECK (hourly_occupancy >= 0),
			daily_occupancy   INTEGER NOT NULL DEFAULT 0 CHECK (daily_occupancy >= 0),
			booked_count      INTEGER NOT NULL DEFAULT 0,
			no_show_count     INTEGER NOT NULL DEFAULT 0,
			cancelled_count   INTEGER NOT NULL DEFAULT 0,
			waitlist_count    INTEGER NOT NULL DEFAULT 0,
			peak_time         TEXT,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_session_date  ON bookings(session_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user          ON bookings(user_id, session_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date          ON session_occurrences(date, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_date         ON analytics(date)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_date_slot    ON analytics(date, start_time_of_day, end_time_of_day)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role             ON users(user_role)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
