package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/occupancy/internal/calendar"
)

// Repository is the data-store contract the analytics engine consumes:
// filtered range reads over the upstream tables plus append-only inserts
// into analytics.
type Repository interface {
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	ListSessions(ctx context.Context, dates calendar.DateRange) ([]SessionOccurrence, error)
	ListSamples(ctx context.Context, filter SampleFilter) ([]OccupancySample, error)
	CountSamples(ctx context.Context, filter SampleFilter) (int64, error)
	CountUsers(ctx context.Context, role string) (int64, error)
	InsertSamples(ctx context.Context, samples []OccupancySample) error
}

// Importer writes the upstream-owned tables. Only fixture import and tests
// use it; the analytics engine never does.
type Importer interface {
	InsertUsers(ctx context.Context, users []User) error
	InsertBookings(ctx context.Context, bookings []Booking) error
	InsertSessions(ctx context.Context, sessions []SessionOccurrence) error
}

// SQLiteStore implements Repository backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	insertSample *sql.Stmt
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Importer   = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	var err error
	s.insertSample, err = db.Prepare(`
		INSERT INTO analytics (id, date, start_time_of_day, end_time_of_day,
			hourly_occupancy, daily_occupancy, booked_count, no_show_count,
			cancelled_count, waitlist_count, peak_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999-07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// parseDate returns the zero time for unparsable values so the caller can
// skip the record.
func parseDate(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return d
}

func parseClock(s string) calendar.TimeOfDay {
	t, err := calendar.ParseTimeOfDay(s)
	if err != nil {
		return calendar.NoTime
	}
	return t
}

// whereRange appends session-date style range clauses for column.
func whereRange(column string, r calendar.DateRange, clauses []string, args []interface{}) ([]string, []interface{}) {
	if !r.From.IsZero() {
		clauses = append(clauses, column+" >= ?")
		args = append(args, calendar.FormatDate(r.From))
	}
	if !r.To.IsZero() {
		clauses = append(clauses, column+" <= ?")
		args = append(args, calendar.FormatDate(r.To))
	}
	return clauses, args
}

func joinWhere(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// ListBookings returns bookings whose session_date falls in the filter range,
// ordered by session date then booking time.
func (s *SQLiteStore) ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error) {
	clauses, args := whereRange("session_date", f.Range, nil, nil)
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}

	query := `SELECT id, user_id, session_date, booking_time, status FROM bookings` +
		joinWhere(clauses) + ` ORDER BY session_date, booking_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []Booking{}
	for rows.Next() {
		var b Booking
		var dateStr, tsStr, status string
		if err := rows.Scan(&b.ID, &b.UserID, &dateStr, &tsStr, &status); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.SessionDate = parseDate(dateStr)
		b.BookingTime, _ = parseTimestamp(tsStr)
		b.Status = BookingStatus(status)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListSessions returns session occurrences dated within r, ordered by date and start.
func (s *SQLiteStore) ListSessions(ctx context.Context, r calendar.DateRange) ([]SessionOccurrence, error) {
	clauses, args := whereRange("date", r, nil, nil)
	query := `SELECT id, date, start_time, end_time, booked_slots, attended_count,
			override_capacity, status
		FROM session_occurrences` + joinWhere(clauses) + ` ORDER BY date, start_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionOccurrence{}
	for rows.Next() {
		var so SessionOccurrence
		var dateStr, startStr, endStr string
		var override sql.NullInt64
		if err := rows.Scan(&so.ID, &dateStr, &startStr, &endStr,
			&so.BookedSlots, &so.AttendedCount, &override, &so.Status); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		so.Date = parseDate(dateStr)
		so.Start = parseClock(startStr)
		so.End = parseClock(endStr)
		if override.Valid {
			c := int(override.Int64)
			so.OverrideCapacity = &c
		}
		sessions = append(sessions, so)
	}
	return sessions, rows.Err()
}

func sampleClauses(f SampleFilter) ([]string, []interface{}) {
	clauses, args := whereRange("date", f.Range, nil, nil)

	const sentinel = "(start_time_of_day = '00:00' AND end_time_of_day = '23:59')"
	switch f.Kind {
	case HourlySamples:
		clauses = append(clauses, "NOT "+sentinel)
	case DailySummaries:
		clauses = append(clauses, sentinel)
	}

	if f.Start != nil {
		clauses = append(clauses, "start_time_of_day = ?")
		args = append(args, f.Start.String())
	}
	if f.End != nil {
		clauses = append(clauses, "end_time_of_day = ?")
		args = append(args, f.End.String())
	}
	return clauses, args
}

// ListSamples returns analytics rows matching the filter, ordered by date
// and bucket start. Daily summary rows are excluded unless the filter asks
// for them.
func (s *SQLiteStore) ListSamples(ctx context.Context, f SampleFilter) ([]OccupancySample, error) {
	clauses, args := sampleClauses(f)
	query := `SELECT id, date, start_time_of_day, end_time_of_day, hourly_occupancy,
			daily_occupancy, booked_count, no_show_count, cancelled_count,
			waitlist_count, peak_time
		FROM analytics` + joinWhere(clauses) + ` ORDER BY date, start_time_of_day, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	defer rows.Close()

	samples := []OccupancySample{}
	for rows.Next() {
		var a OccupancySample
		var dateStr, startStr, endStr string
		var peak sql.NullString
		if err := rows.Scan(&a.ID, &dateStr, &startStr, &endStr, &a.HourlyOccupancy,
			&a.DailyOccupancy, &a.BookedCount, &a.NoShowCount, &a.CancelledCount,
			&a.WaitlistCount, &peak); err != nil {
			return nil, fmt.Errorf("scan analytics: %w", err)
		}
		a.Date = parseDate(dateStr)
		a.Start = parseClock(startStr)
		a.End = parseClock(endStr)
		if peak.Valid {
			a.PeakTime = peak.String
		}
		samples = append(samples, a)
	}
	return samples, rows.Err()
}

// CountSamples counts analytics rows matching the filter.
func (s *SQLiteStore) CountSamples(ctx context.Context, f SampleFilter) (int64, error) {
	clauses, args := sampleClauses(f)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analytics"+joinWhere(clauses), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count analytics: %w", err)
	}
	return n, nil
}

// CountUsers counts users with the given role, or all users when role is empty.
func (s *SQLiteStore) CountUsers(ctx context.Context, role string) (int64, error) {
	query := "SELECT COUNT(*) FROM users"
	var args []interface{}
	if role != "" {
		query += " WHERE user_role = ?"
		args = append(args, role)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// InsertSamples appends analytics rows in a single transaction. Rows
// without an ID get a fresh UUID, which is written back into the slice.
func (s *SQLiteStore) InsertSamples(ctx context.Context, samples []OccupancySample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.insertSample)
	for i := range samples {
		a := &samples[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		var peak interface{}
		if a.PeakTime != "" {
			peak = a.PeakTime
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, calendar.FormatDate(a.Date), a.Start.String(), a.End.String(),
			a.HourlyOccupancy, a.DailyOccupancy, a.BookedCount, a.NoShowCount,
			a.CancelledCount, a.WaitlistCount, peak,
		); err != nil {
			return fmt.Errorf("insert analytics row %s %s: %w", calendar.FormatDate(a.Date), a.Start, err)
		}
	}

	return tx.Commit()
}

// InsertUsers upserts users by id.
func (s *SQLiteStore) InsertUsers(ctx context.Context, users []User) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			role := u.Role
			if role == "" {
				role = "member"
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO users (id, user_role) VALUES (?, ?)
				 ON CONFLICT(id) DO UPDATE SET user_role = excluded.user_role`,
				u.ID, role,
			); err != nil {
				return fmt.Errorf("insert user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// InsertBookings inserts bookings. A zero BookingTime is stored as now.
func (s *SQLiteStore) InsertBookings(ctx context.Context, bookings []Booking) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range bookings {
			b := &bookings[i]
			if b.BookingTime.IsZero() {
				b.BookingTime = time.Now()
			}
			status := b.Status
			if status == "" {
				status = StatusConfirmed
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO bookings (user_id, session_date, booking_time, status) VALUES (?, ?, ?, ?)`,
				b.UserID, calendar.FormatDate(b.SessionDate), b.BookingTime.UTC().Format(time.RFC3339), string(status),
			)
			if err != nil {
				return fmt.Errorf("insert booking for %s: %w", b.UserID, err)
			}
			b.ID, _ = res.LastInsertId()
		}
		return nil
	})
}

// InsertSessions inserts session occurrences.
func (s *SQLiteStore) InsertSessions(ctx context.Context, sessions []SessionOccurrence) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range sessions {
			so := &sessions[i]
			status := so.Status
			if status == "" {
				status = "scheduled"
			}
			var override interface{}
			if so.OverrideCapacity != nil {
				override = *so.OverrideCapacity
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO session_occurrences (date, start_time, end_time, booked_slots,
					attended_count, override_capacity, status)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				calendar.FormatDate(so.Date), so.Start.String(), so.End.String(),
				so.BookedSlots, so.AttendedCount, override, status,
			)
			if err != nil {
				return fmt.Errorf("insert session %s %s: %w", calendar.FormatDate(so.Date), so.Start, err)
			}
			so.ID, _ = res.LastInsertId()
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetStats returns aggregate counts about the database. dbPath is used for
// the on-disk size; in-memory databases fall back to page accounting.
func (s *SQLiteStore) GetStats(ctx context.Context, dbPath string) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM users", &stats.TotalUsers},
		{"SELECT COUNT(*) FROM bookings", &stats.TotalBookings},
		{"SELECT COUNT(*) FROM session_occurrences", &stats.TotalSessions},
		{"SELECT COUNT(*) FROM analytics WHERE NOT (start_time_of_day = '00:00' AND end_time_of_day = '23:59')", &stats.TotalHourlyRollups},
		{"SELECT COUNT(*) FROM analytics WHERE start_time_of_day = '00:00' AND end_time_of_day = '23:59'", &stats.TotalDailySummaries},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats (%s): %w", c.query, err)
		}
	}

	if stats.TotalHourlyRollups+stats.TotalDailySummaries > 0 {
		var oldest, newest string
		if err := s.db.QueryRowContext(ctx, "SELECT MIN(date), MAX(date) FROM analytics").Scan(&oldest, &newest); err != nil {
			return nil, fmt.Errorf("rollup date range: %w", err)
		}
		stats.OldestRollup = parseDate(oldest)
		stats.NewestRollup = parseDate(newest)
	}

	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}
	stats.SchemaVersion = int(version.Int64)

	stats.DatabaseSizeBytes = s.databaseSize(dbPath)
	return stats, nil
}

// databaseSize returns the file size, or page_count * page_size when the
// file is unavailable (in-memory databases).
func (s *SQLiteStore) databaseSize(dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}
	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// Close releases prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	if s.insertSample != nil {
		return s.insertSample.Close()
	}
	return nil
}
