package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/storage"
)

// RegularThreshold is the number of bookings in a month that makes a user
// a regular.
const RegularThreshold = 5

var (
	morningStart   = calendar.TimeOfDay(6 * 60)
	afternoonStart = calendar.TimeOfDay(12 * 60)
	afternoonEnd   = calendar.TimeOfDay(18 * 60)
)

// SlotValue is the occupancy of one bucket.
type SlotValue struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Occupancy int    `json:"occupancy"`
}

func slotValue(s storage.OccupancySample) *SlotValue {
	return &SlotValue{Start: s.Start.String(), End: s.End.String(), Occupancy: s.HourlyOccupancy}
}

// PeakHoursInsight names the busiest morning and afternoon buckets and the
// quietest bucket that saw any use. A nil peak means the window had no
// samples; a nil LowestUsage means no bucket was above zero.
type PeakHoursInsight struct {
	MorningPeak   *SlotValue `json:"morning_peak"`
	AfternoonPeak *SlotValue `json:"afternoon_peak"`
	LowestUsage   *SlotValue `json:"lowest_usage"`
}

// PeakHours scans one day's hourly samples in ascending start order.
// Morning is [06:00, 12:00) and afternoon [12:00, 18:00); each reports its
// highest bucket, ties going to the earlier one, so an all-zero window
// reports its first bucket. Lowest usage only considers buckets with
// occupancy above zero.
func PeakHours(samples []storage.OccupancySample) PeakHoursInsight {
	ordered := make([]storage.OccupancySample, 0, len(samples))
	for _, s := range samples {
		if s.Start.Valid() && !s.IsDailySummary() {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var out PeakHoursInsight
	for _, s := range ordered {
		occ := s.HourlyOccupancy
		switch {
		case s.Start >= morningStart && s.Start < afternoonStart:
			if out.MorningPeak == nil || occ > out.MorningPeak.Occupancy {
				out.MorningPeak = slotValue(s)
			}
		case s.Start >= afternoonStart && s.Start < afternoonEnd:
			if out.AfternoonPeak == nil || occ > out.AfternoonPeak.Occupancy {
				out.AfternoonPeak = slotValue(s)
			}
		}
		if occ > 0 && (out.LowestUsage == nil || occ < out.LowestUsage.Occupancy) {
			out.LowestUsage = slotValue(s)
		}
	}
	return out
}

// BookingInsight describes booking behavior over one month. AvgLeadTimeDays
// is nil when no booking had a computable lead time.
type BookingInsight struct {
	TotalBookings    int      `json:"total_bookings"`
	AvgLeadTimeDays  *float64 `json:"avg_lead_time_days"`
	CancellationRate float64  `json:"cancellation_rate"`
	SameDayRate      float64  `json:"same_day_rate"`
}

// LeadTimeDays returns the days between booking creation and the start of
// the session date in loc. ok is false when either side is missing or the
// result is not a finite number.
func LeadTimeDays(b storage.Booking, loc *time.Location) (float64, bool) {
	if b.SessionDate.IsZero() || b.BookingTime.IsZero() {
		return 0, false
	}
	sessionStart := calendar.Midnight.On(b.SessionDate, loc)
	days := sessionStart.Sub(b.BookingTime).Hours() / 24
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return 0, false
	}
	return days, true
}

// BookingBehavior computes lead time, cancellation and same-day rates.
// Rates are 0 when there are no bookings.
func BookingBehavior(bookings []storage.Booking, loc *time.Location) BookingInsight {
	out := BookingInsight{TotalBookings: len(bookings)}
	if len(bookings) == 0 {
		return out
	}

	var leadSum float64
	leadCount, cancelled, sameDay := 0, 0, 0
	for _, b := range bookings {
		if lead, ok := LeadTimeDays(b, loc); ok {
			leadSum += lead
			leadCount++
		}
		if b.Status.IsCancelled() {
			cancelled++
		}
		if !b.BookingTime.IsZero() && !b.SessionDate.IsZero() &&
			calendar.DateOf(b.BookingTime.In(loc)).Equal(b.SessionDate) {
			sameDay++
		}
	}

	if leadCount > 0 {
		avg := round2(leadSum / float64(leadCount))
		out.AvgLeadTimeDays = &avg
	}
	total := float64(len(bookings))
	out.CancellationRate = round2(percent(float64(cancelled), total))
	out.SameDayRate = round2(percent(float64(sameDay), total))
	return out
}

// EngagementInsight segments the users active this month. All rates are
// shares of ActiveUsers, not of the registered user base. TotalMembers is
// nil when the member count could not be read.
type EngagementInsight struct {
	ActiveUsers    int     `json:"active_users"`
	RegularUsers   int     `json:"regular_users"`
	NewUsers       int     `json:"new_users"`
	ReturningUsers int     `json:"returning_users"`
	RegularRate    float64 `json:"regular_rate"`
	NewRate        float64 `json:"new_rate"`
	ReturningRate  float64 `json:"returning_rate"`
	TotalMembers   *int64  `json:"total_members"`
}

// UserEngagement classifies users with at least one booking in month.
// history must contain every booking up to the end of month so each
// user's earliest session date is known.
//
//	regular:   ≥ RegularThreshold bookings this month
//	new:       earliest booked session date falls in this month
//	returning: bookings in both this month and the previous one
func UserEngagement(month calendar.DateRange, history []storage.Booking) EngagementInsight {
	previous := calendar.PreviousMonthRange(month.From)

	thisMonth := make(map[string]int)
	lastMonth := make(map[string]int)
	earliest := make(map[string]time.Time)
	for _, b := range history {
		if b.SessionDate.IsZero() || b.UserID == "" {
			continue
		}
		if first, ok := earliest[b.UserID]; !ok || b.SessionDate.Before(first) {
			earliest[b.UserID] = b.SessionDate
		}
		switch {
		case month.Contains(b.SessionDate):
			thisMonth[b.UserID]++
		case previous.Contains(b.SessionDate):
			lastMonth[b.UserID]++
		}
	}

	out := EngagementInsight{ActiveUsers: len(thisMonth)}
	for user, n := range thisMonth {
		if n >= RegularThreshold {
			out.RegularUsers++
		}
		if month.Contains(earliest[user]) {
			out.NewUsers++
		}
		if lastMonth[user] > 0 {
			out.ReturningUsers++
		}
	}

	active := float64(out.ActiveUsers)
	out.RegularRate = round2(percent(float64(out.RegularUsers), active))
	out.NewRate = round2(percent(float64(out.NewUsers), active))
	out.ReturningRate = round2(percent(float64(out.ReturningUsers), active))
	return out
}
