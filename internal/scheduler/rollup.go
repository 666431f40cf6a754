package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/logging"
	"github.com/runnerr0/occupancy/internal/storage"
)

// RollupResult counts what one run wrote.
type RollupResult struct {
	HourlyWritten int  `json:"hourly_written"`
	HourlySkipped int  `json:"hourly_skipped"`
	DailyWritten  bool `json:"daily_written"`
}

// RollupJob writes completed hourly buckets for today and yesterday and
// the daily summary for yesterday. The writer itself appends blindly, so
// the job checks for an existing row before each insert; running it any
// number of times leaves one row per bucket.
type RollupJob struct {
	repo   storage.Repository
	writer *analytics.RollupWriter
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// JobOption customizes a RollupJob.
type JobOption func(*RollupJob)

// WithJobClock replaces time.Now.
func WithJobClock(now func() time.Time) JobOption {
	return func(j *RollupJob) { j.now = now }
}

// WithJobLogger sets the logger for run summaries.
func WithJobLogger(log *slog.Logger) JobOption {
	return func(j *RollupJob) { j.log = log }
}

// NewRollupJob returns a job computing calendar days in loc.
func NewRollupJob(repo storage.Repository, loc *time.Location, opts ...JobOption) *RollupJob {
	j := &RollupJob{
		repo:   repo,
		writer: analytics.NewRollupWriter(repo),
		loc:    loc,
		now:    time.Now,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run performs one rollup pass.
func (j *RollupJob) Run(ctx context.Context) (RollupResult, error) {
	var res RollupResult
	now := j.now().In(j.loc)
	today := calendar.DateOf(now)
	yesterday := today.AddDate(0, 0, -1)

	for _, day := range []time.Time{yesterday, today} {
		if err := j.rollupHours(ctx, day, now, &res); err != nil {
			return res, err
		}
	}

	written, err := j.rollupDay(ctx, yesterday)
	if err != nil {
		return res, err
	}
	res.DailyWritten = written

	j.log.Info("rollup finished",
		"date", calendar.FormatDate(today),
		"hourly_written", res.HourlyWritten,
		"hourly_skipped", res.HourlySkipped,
		"daily_written", res.DailyWritten)
	return res, nil
}

func (j *RollupJob) rollupHours(ctx context.Context, day, now time.Time, res *RollupResult) error {
	sessions, err := j.repo.ListSessions(ctx, calendar.DayRange(day))
	if err != nil {
		return fmt.Errorf("listing sessions for %s: %w", calendar.FormatDate(day), err)
	}

	buckets, skipped := analytics.BuildBucketMetrics(day, sessions, now, j.loc)
	for _, cerr := range skipped {
		j.log.Debug("skipping session", "date", calendar.FormatDate(day), "record", cerr.Record, "err", cerr.Err)
	}

	var missing []analytics.BucketMetrics
	for _, b := range buckets {
		exists, err := j.exists(ctx, storage.SampleFilter{
			Range: calendar.DayRange(day),
			Kind:  storage.HourlySamples,
			Start: &b.Start,
			End:   &b.End,
		})
		if err != nil {
			return err
		}
		if exists {
			res.HourlySkipped++
			continue
		}
		missing = append(missing, b)
	}

	if err := j.writer.LogHourlyRollup(ctx, missing); err != nil {
		return err
	}
	res.HourlyWritten += len(missing)
	return nil
}

func (j *RollupJob) rollupDay(ctx context.Context, day time.Time) (bool, error) {
	exists, err := j.exists(ctx, storage.SampleFilter{Range: calendar.DayRange(day), Kind: storage.DailySummaries})
	if err != nil || exists {
		return false, err
	}

	sessions, err := j.repo.ListSessions(ctx, calendar.DayRange(day))
	if err != nil {
		return false, fmt.Errorf("listing sessions for %s: %w", calendar.FormatDate(day), err)
	}
	if len(sessions) == 0 {
		return false, nil
	}
	bookings, err := j.repo.ListBookings(ctx, storage.BookingFilter{Range: calendar.DayRange(day)})
	if err != nil {
		return false, fmt.Errorf("listing bookings for %s: %w", calendar.FormatDate(day), err)
	}

	if err := j.writer.LogDailySummary(ctx, analytics.BuildDayMetrics(day, sessions, bookings)); err != nil {
		return false, err
	}
	return true, nil
}

func (j *RollupJob) exists(ctx context.Context, f storage.SampleFilter) (bool, error) {
	n, err := j.repo.CountSamples(ctx, f)
	if err != nil {
		return false, fmt.Errorf("counting analytics rows: %w", err)
	}
	return n > 0, nil
}
