package storage

import (
	"strings"
	"time"

	"github.com/runnerr0/occupancy/internal/calendar"
)

// BookingStatus is the lifecycle state of a booking as written by the
// booking subsystem.
type BookingStatus string

const (
	StatusConfirmed        BookingStatus = "confirmed"
	StatusAttended         BookingStatus = "attended"
	StatusNoShow           BookingStatus = "no_show"
	StatusWaitlisted       BookingStatus = "waitlisted"
	StatusCancelled        BookingStatus = "cancelled"
	StatusCancelledLate    BookingStatus = "cancelled_late"
	StatusCancelledByAdmin BookingStatus = "cancelled_by_admin"
)

// IsCancelled reports whether the status is any cancelled variant. Every
// status beginning with "cancelled" counts, including ones this package
// has no constant for.
func (s BookingStatus) IsCancelled() bool {
	return strings.HasPrefix(string(s), string(StatusCancelled))
}

// IsWaitlisted reports whether the booking is waiting for a free slot.
func (s BookingStatus) IsWaitlisted() bool {
	return s == StatusWaitlisted
}

// User is a registered account.
type User struct {
	ID   string
	Role string // "member", "staff", "admin"
}

// Booking is one user's reservation for a session date. Read-only to the
// analytics engine.
type Booking struct {
	ID          int64
	UserID      string
	SessionDate time.Time // calendar date; zero when the stored value is unparsable
	BookingTime time.Time // zero when the stored value is unparsable
	Status      BookingStatus
}

// SessionOccurrence is one scheduled time bucket on one calendar day.
type SessionOccurrence struct {
	ID               int64
	Date             time.Time
	Start            calendar.TimeOfDay
	End              calendar.TimeOfDay
	BookedSlots      int
	AttendedCount    int
	OverrideCapacity *int
	Status           string
}

// EffectiveCapacity returns the override capacity when set, otherwise the
// given static capacity.
func (s SessionOccurrence) EffectiveCapacity(static int) int {
	if s.OverrideCapacity != nil {
		return *s.OverrideCapacity
	}
	return static
}

// OccupancySample is one row of the analytics table: either a completed
// hourly bucket or a daily summary marked by the 00:00/23:59 sentinels.
// Rows are append-only.
type OccupancySample struct {
	ID              string
	Date            time.Time
	Start           calendar.TimeOfDay
	End             calendar.TimeOfDay
	HourlyOccupancy int
	DailyOccupancy  int
	BookedCount     int
	NoShowCount     int
	CancelledCount  int
	WaitlistCount   int
	PeakTime        string
}

// IsDailySummary reports whether the row carries the daily sentinel markers.
func (s OccupancySample) IsDailySummary() bool {
	return s.Start == calendar.Midnight && s.End == calendar.EndOfDay
}

// BookingFilter selects bookings by session date and user. A zero bound is
// unbounded on that side.
type BookingFilter struct {
	Range  calendar.DateRange
	UserID string
}

// SampleKind selects which analytics rows a query returns.
type SampleKind int

const (
	HourlySamples SampleKind = iota
	DailySummaries
	AllSamples
)

// SampleFilter selects analytics rows. Start and End, when set, match the
// bucket boundaries exactly.
type SampleFilter struct {
	Range calendar.DateRange
	Kind  SampleKind
	Start *calendar.TimeOfDay
	End   *calendar.TimeOfDay
}

// Stats holds aggregate counts about the database.
type Stats struct {
	TotalUsers          int64
	TotalBookings       int64
	TotalSessions       int64
	TotalHourlyRollups  int64
	TotalDailySummaries int64
	OldestRollup        time.Time
	NewestRollup        time.Time
	SchemaVersion       int
	DatabaseSizeBytes   int64
}
