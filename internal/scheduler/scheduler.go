package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds a single scheduled rollup.
const runTimeout = 2 * time.Minute

// Scheduler runs a RollupJob on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	job  *RollupJob
	log  *slog.Logger
}

// New registers job under spec, a standard five-field cron expression
// evaluated in loc. Overlapping runs are skipped.
func New(job *RollupJob, spec string, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{cron: c, job: job, log: log}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parsing rollup schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.job.Run(ctx); err != nil {
		s.log.Error("rollup failed", "err", err)
	}
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.log.Info("rollup scheduler starting")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running rollup to finish or
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.log.Info("rollup scheduler stopping")
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(s.cron.Location()))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
