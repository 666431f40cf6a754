package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/storage"
)

// BucketMetrics are the totals for one completed bucket.
type BucketMetrics struct {
	Date      time.Time
	Start     calendar.TimeOfDay
	End       calendar.TimeOfDay
	Occupancy int
	Booked    int
	NoShow    int
	Cancelled int
	Waitlist  int
}

// DayMetrics are the whole-day totals stored as the daily summary row.
type DayMetrics struct {
	Date           time.Time
	TotalOccupancy int
	PeakOccupancy  int
	PeakTime       calendar.TimeOfDay
	Booked         int
	NoShow         int
	Cancelled      int
	Waitlist       int
}

// RollupWriter appends rollup rows to the analytics table. It never
// deduplicates: calling it twice for the same bucket writes two rows.
type RollupWriter struct {
	repo storage.Repository
}

// NewRollupWriter returns a writer over repo.
func NewRollupWriter(repo storage.Repository) *RollupWriter {
	return &RollupWriter{repo: repo}
}

// LogHourlyRollup appends one row per bucket. Store errors are returned.
func (w *RollupWriter) LogHourlyRollup(ctx context.Context, buckets []BucketMetrics) error {
	if len(buckets) == 0 {
		return nil
	}

	rows := make([]storage.OccupancySample, 0, len(buckets))
	for _, b := range buckets {
		if err := b.validate(); err != nil {
			return err
		}
		rows = append(rows, storage.OccupancySample{
			Date:            b.Date,
			Start:           b.Start,
			End:             b.End,
			HourlyOccupancy: b.Occupancy,
			BookedCount:     b.Booked,
			NoShowCount:     b.NoShow,
			CancelledCount:  b.Cancelled,
			WaitlistCount:   b.Waitlist,
			PeakTime:        b.Start.String(),
		})
	}
	return storeErr("insert hourly rollup", w.repo.InsertSamples(ctx, rows))
}

// LogDailySummary appends the day's sentinel row (00:00/23:59). Store
// errors are returned.
func (w *RollupWriter) LogDailySummary(ctx context.Context, day DayMetrics) error {
	if day.Date.IsZero() {
		return &ComputationError{Record: "daily summary", Err: errors.New("missing date")}
	}
	if day.TotalOccupancy < 0 || day.PeakOccupancy < 0 {
		return &ComputationError{Record: "daily summary " + calendar.FormatDate(day.Date), Err: errors.New("negative occupancy")}
	}

	row := storage.OccupancySample{
		Date:            day.Date,
		Start:           calendar.Midnight,
		End:             calendar.EndOfDay,
		HourlyOccupancy: day.PeakOccupancy,
		DailyOccupancy:  day.TotalOccupancy,
		BookedCount:     day.Booked,
		NoShowCount:     day.NoShow,
		CancelledCount:  day.Cancelled,
		WaitlistCount:   day.Waitlist,
	}
	if day.PeakOccupancy > 0 {
		row.PeakTime = day.PeakTime.String()
	}
	return storeErr("insert daily summary", w.repo.InsertSamples(ctx, []storage.OccupancySample{row}))
}

func (b BucketMetrics) validate() error {
	record := fmt.Sprintf("bucket %s %s", calendar.FormatDate(b.Date), b.Start)
	switch {
	case b.Date.IsZero():
		return &ComputationError{Record: record, Err: errors.New("missing date")}
	case !b.Start.Valid() || !b.End.Valid() || b.End <= b.Start:
		return &ComputationError{Record: record, Err: errors.New("invalid bucket range")}
	case b.Occupancy < 0:
		return &ComputationError{Record: record, Err: errors.New("negative occupancy")}
	case b.Start == calendar.Midnight && b.End == calendar.EndOfDay:
		return &ComputationError{Record: record, Err: errors.New("bucket collides with daily summary markers")}
	}
	return nil
}

// BuildBucketMetrics turns one day's session occurrences into bucket
// metrics, keeping only sessions that ended at or before now. Sessions
// that cannot be stored as a bucket (end not after start, or spanning the
// daily summary markers) are left out and returned as skipped.
func BuildBucketMetrics(date time.Time, sessions []storage.SessionOccurrence, now time.Time, loc *time.Location) ([]BucketMetrics, []*ComputationError) {
	out := []BucketMetrics{}
	var skipped []*ComputationError
	for _, s := range sessions {
		if !s.Date.Equal(date) {
			continue
		}
		b := BucketMetrics{
			Date:      date,
			Start:     s.Start,
			End:       s.End,
			Occupancy: s.AttendedCount,
			Booked:    s.BookedSlots,
			NoShow:    max(s.BookedSlots-s.AttendedCount, 0),
		}
		if err := b.validate(); err != nil {
			var cerr *ComputationError
			if errors.As(err, &cerr) {
				cerr.Record = fmt.Sprintf("session %d", s.ID)
				skipped = append(skipped, cerr)
			}
			continue
		}
		if s.End.On(date, loc).After(now) {
			continue
		}
		out = append(out, b)
	}
	return out, skipped
}

// BuildDayMetrics totals one day's sessions and bookings. The peak is the
// first session with the highest attendance.
func BuildDayMetrics(date time.Time, sessions []storage.SessionOccurrence, bookings []storage.Booking) DayMetrics {
	day := DayMetrics{Date: date}
	for _, s := range sessions {
		if !s.Date.Equal(date) {
			continue
		}
		day.TotalOccupancy += s.AttendedCount
		day.Booked += s.BookedSlots
		day.NoShow += max(s.BookedSlots-s.AttendedCount, 0)
		if s.AttendedCount > day.PeakOccupancy {
			day.PeakOccupancy = s.AttendedCount
			day.PeakTime = s.Start
		}
	}
	for _, b := range bookings {
		if !b.SessionDate.Equal(date) {
			continue
		}
		switch {
		case b.Status.IsCancelled():
			day.Cancelled++
		case b.Status.IsWaitlisted():
			day.Waitlist++
		}
	}
	return day
}
