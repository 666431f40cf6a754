package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/storage"
)

// Settings are the engine's fixed parameters.
type Settings struct {
	// MaxCapacity is the single source of truth for facility capacity. It
	// is the denominator of peak utilization and the fallback capacity of
	// sessions without an override.
	MaxCapacity int
	Buckets     []Bucket
	Location    *time.Location
	// MemberRole is the users.user_role counted as the member base.
	MemberRole string
}

// Validate reports the first setting that would make results meaningless.
func (s Settings) Validate() error {
	if s.MaxCapacity <= 0 {
		return &ConfigurationError{Field: "capacity.max", Reason: fmt.Sprintf("must be positive, got %d", s.MaxCapacity)}
	}
	if s.Location == nil {
		return &ConfigurationError{Field: "timezone", Reason: "location is not set"}
	}
	return ValidateBuckets(s.Buckets)
}

// Engine computes dashboard metrics against a Repository. It holds no
// state between calls and is safe for concurrent use.
type Engine struct {
	repo     storage.Repository
	settings Settings
	now      func() time.Time
	log      *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the engine's reference time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for skipped records and failed groups.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine validates settings and returns an Engine.
func NewEngine(repo storage.Repository, settings Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		repo:     repo,
		settings: settings,
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the engine's settings.
func (e *Engine) Settings() Settings { return e.settings }

// Now returns the reference time in the configured location.
func (e *Engine) Now() time.Time { return e.now().In(e.settings.Location) }

// Today returns the reference calendar date.
func (e *Engine) Today() time.Time { return calendar.DateOf(e.Now()) }

// skip logs a malformed record.
func (e *Engine) skip(err *ComputationError) {
	e.log.Debug("skipping record", "record", err.Record, "err", err.Err)
}

func (e *Engine) bookings(ctx context.Context, f storage.BookingFilter) ([]storage.Booking, error) {
	rows, err := e.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	kept := make([]storage.Booking, 0, len(rows))
	for _, b := range rows {
		if b.SessionDate.IsZero() {
			e.skip(&ComputationError{Record: fmt.Sprintf("booking %d", b.ID), Err: errors.New("unparsable session_date")})
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}

func (e *Engine) sessions(ctx context.Context, r calendar.DateRange) ([]storage.SessionOccurrence, error) {
	rows, err := e.repo.ListSessions(ctx, r)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	kept := make([]storage.SessionOccurrence, 0, len(rows))
	for _, s := range rows {
		if s.Date.IsZero() || !s.Start.Valid() || !s.End.Valid() {
			e.skip(&ComputationError{Record: fmt.Sprintf("session %d", s.ID), Err: errors.New("unparsable date or time")})
			continue
		}
		kept = append(kept, s)
	}
	return kept, nil
}

func (e *Engine) samples(ctx context.Context, r calendar.DateRange) ([]storage.OccupancySample, error) {
	rows, err := e.repo.ListSamples(ctx, storage.SampleFilter{Range: r, Kind: storage.HourlySamples})
	if err != nil {
		return nil, storeErr("list analytics", err)
	}
	kept := make([]storage.OccupancySample, 0, len(rows))
	for _, s := range rows {
		if s.Date.IsZero() || !s.Start.Valid() || !s.End.Valid() {
			e.skip(&ComputationError{Record: "analytics " + s.ID, Err: errors.New("unparsable date or time")})
			continue
		}
		kept = append(kept, s)
	}
	return kept, nil
}

func (e *Engine) period(ctx context.Context, r calendar.DateRange) (PeriodData, error) {
	var p PeriodData
	var err error
	if p.Bookings, err = e.bookings(ctx, storage.BookingFilter{Range: r}); err != nil {
		return p, err
	}
	if p.Samples, err = e.samples(ctx, r); err != nil {
		return p, err
	}
	if p.Sessions, err = e.sessions(ctx, r); err != nil {
		return p, err
	}
	return p, nil
}

// Summary compares this calendar month with the previous one.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	today := e.Today()
	current, err := e.period(ctx, calendar.MonthRange(today))
	if err != nil {
		return Summary{}, err
	}
	previous, err := e.period(ctx, calendar.PreviousMonthRange(today))
	if err != nil {
		return Summary{}, err
	}
	return ComputeSummary(current, previous, e.settings.MaxCapacity), nil
}

// WeeklyTrend returns booking and attendance counts for the current ISO week.
func (e *Engine) WeeklyTrend(ctx context.Context) (WeeklySeries, error) {
	today := e.Today()
	week := calendar.ISOWeekRange(today)
	bookings, err := e.bookings(ctx, storage.BookingFilter{Range: week})
	if err != nil {
		return WeeklySeries{}, err
	}
	sessions, err := e.sessions(ctx, week)
	if err != nil {
		return WeeklySeries{}, err
	}
	return WeeklyTrend(today, bookings, sessions), nil
}

// MonthlyTrend returns booking counts for the last six calendar months.
func (e *Engine) MonthlyTrend(ctx context.Context) ([]Point, error) {
	today := e.Today()
	bookings, err := e.bookings(ctx, storage.BookingFilter{Range: MonthlyTrendRange(today)})
	if err != nil {
		return nil, err
	}
	return MonthlyTrend(today, bookings), nil
}

// PeakHours returns today's peak and lowest-usage buckets.
func (e *Engine) PeakHours(ctx context.Context) (PeakHoursInsight, error) {
	samples, err := e.samples(ctx, calendar.DayRange(e.Today()))
	if err != nil {
		return PeakHoursInsight{}, err
	}
	return PeakHours(samples), nil
}

// OccupancyCurve returns one point per configured bucket for date.
func (e *Engine) OccupancyCurve(ctx context.Context, date time.Time) ([]XY, error) {
	samples, err := e.samples(ctx, calendar.DayRange(date))
	if err != nil {
		return nil, err
	}
	return e.curve(samples), nil
}

func (e *Engine) curve(samples []storage.OccupancySample) []XY {
	slots := make([]SlotSample, len(samples))
	for i, s := range samples {
		slots[i] = SlotSample{Start: s.Start, Occupancy: s.HourlyOccupancy}
	}
	return BucketSamples(e.settings.Buckets, slots)
}

// BookingInsights describes this month's booking behavior.
func (e *Engine) BookingInsights(ctx context.Context) (BookingInsight, error) {
	bookings, err := e.bookings(ctx, storage.BookingFilter{Range: calendar.MonthRange(e.Today())})
	if err != nil {
		return BookingInsight{}, err
	}
	return BookingBehavior(bookings, e.settings.Location), nil
}

// Engagement segments this month's active users. A failed member count
// leaves TotalMembers nil and keeps the segmentation.
func (e *Engine) Engagement(ctx context.Context) (EngagementInsight, error) {
	month := calendar.MonthRange(e.Today())
	history, err := e.bookings(ctx, storage.BookingFilter{Range: calendar.DateRange{To: month.To}})
	if err != nil {
		return EngagementInsight{}, err
	}
	out := UserEngagement(month, history)

	members, err := e.repo.CountUsers(ctx, e.settings.MemberRole)
	if err != nil {
		e.log.Warn("member count unavailable", "err", storeErr("count users", err))
		return out, nil
	}
	out.TotalMembers = &members
	return out, nil
}

// CurrentOccupancy is the live reading for the session nearest to now.
type CurrentOccupancy struct {
	Occupancy      int        `json:"occupancy"`
	Slot           *SlotValue `json:"slot"`
	Exact          bool       `json:"exact"`
	Capacity       int        `json:"capacity"`
	UtilizationPct float64    `json:"utilization_pct"`
}

// CurrentOccupancy resolves today's sessions against the current time.
// Capacity is the session's override when present, else MaxCapacity.
func (e *Engine) CurrentOccupancy(ctx context.Context) (CurrentOccupancy, error) {
	now := e.Now()
	sessions, err := e.sessions(ctx, calendar.DayRange(calendar.DateOf(now)))
	if err != nil {
		return CurrentOccupancy{}, err
	}

	slots := make([]Slot, len(sessions))
	for i, s := range sessions {
		slots[i] = Slot{Start: s.Start, End: s.End, Current: s.AttendedCount}
	}
	res := ResolveOccupancy(slots, now)
	if res.Slot == nil {
		return CurrentOccupancy{}, nil
	}

	session := sessions[res.Index]
	capacity := session.EffectiveCapacity(e.settings.MaxCapacity)
	return CurrentOccupancy{
		Occupancy:      res.Occupancy,
		Slot:           &SlotValue{Start: session.Start.String(), End: session.End.String(), Occupancy: res.Occupancy},
		Exact:          res.Exact,
		Capacity:       capacity,
		UtilizationPct: round2(percent(float64(res.Occupancy), float64(capacity))),
	}, nil
}

// Metric group names, used as keys of Dashboard.Errors.
const (
	GroupSummary         = "summary"
	GroupToday           = "today"
	GroupBookingInsights = "booking_insights"
	GroupEngagement      = "engagement"
	GroupWeeklyTrend     = "weekly_trend"
	GroupMonthlyTrend    = "monthly_trend"
)

// Dashboard is every metric group for one reference time. A group that
// failed has a nil field and an entry in Errors.
type Dashboard struct {
	GeneratedAt     time.Time          `json:"generated_at"`
	Summary         *Summary           `json:"summary,omitempty"`
	OccupancyCurve  []XY               `json:"occupancy_curve,omitempty"`
	PeakHours       *PeakHoursInsight  `json:"peak_hours,omitempty"`
	BookingInsights *BookingInsight    `json:"booking_insights,omitempty"`
	Engagement      *EngagementInsight `json:"engagement,omitempty"`
	WeeklyTrend     *WeeklySeries      `json:"weekly_trend,omitempty"`
	MonthlyTrend    []Point            `json:"monthly_trend,omitempty"`
	Errors          map[string]string  `json:"errors,omitempty"`
}

// Dashboard runs every metric group concurrently. Each group issues its own
// queries; a failing group is recorded in Errors and the others still
// complete. The returned error is non-nil only when ctx was cancelled or
// every group failed.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: e.Now()}
	today := e.Today()

	groups := map[string]func(context.Context) error{
		GroupSummary: func(ctx context.Context) error {
			s, err := e.Summary(ctx)
			if err == nil {
				d.Summary = &s
			}
			return err
		},
		// Peak hours and the occupancy curve share one fetch of today's samples.
		GroupToday: func(ctx context.Context) error {
			samples, err := e.samples(ctx, calendar.DayRange(today))
			if err != nil {
				return err
			}
			peaks := PeakHours(samples)
			d.PeakHours = &peaks
			d.OccupancyCurve = e.curve(samples)
			return nil
		},
		GroupBookingInsights: func(ctx context.Context) error {
			b, err := e.BookingInsights(ctx)
			if err == nil {
				d.BookingInsights = &b
			}
			return err
		},
		GroupEngagement: func(ctx context.Context) error {
			en, err := e.Engagement(ctx)
			if err == nil {
				d.Engagement = &en
			}
			return err
		},
		GroupWeeklyTrend: func(ctx context.Context) error {
			w, err := e.WeeklyTrend(ctx)
			if err == nil {
				d.WeeklyTrend = &w
			}
			return err
		},
		GroupMonthlyTrend: func(ctx context.Context) error {
			m, err := e.MonthlyTrend(ctx)
			if err == nil {
				d.MonthlyTrend = m
			}
			return err
		},
	}

	var mu sync.Mutex
	failures := make(map[string]error)

	// Group failures are recorded, not returned; only cancellation ends
	// the whole dashboard.
	var g errgroup.Group
	for name, run := range groups {
		name, run := name, run
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := run(ctx)
			if err == nil {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			e.log.Warn("metric group failed", "group", name, "err", err)
			mu.Lock()
			failures[name] = err
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		d.Errors = make(map[string]string, len(failures))
		for name, err := range failures {
			d.Errors[name] = err.Error()
		}
	}
	if len(failures) == len(groups) {
		return d, ErrAllGroupsFailed
	}
	return d, nil
}
