package analytics

import (
	"time"

	"github.com/runnerr0/occupancy/internal/storage"
)

// PeriodData is everything the summary needs for one calendar month.
// Samples are hourly rows only; daily summary rows must not be included.
type PeriodData struct {
	Bookings []storage.Booking
	Samples  []storage.OccupancySample
	Sessions []storage.SessionOccurrence
}

// Summary holds the four month-over-month KPIs.
//
//	TotalBookings      relative percent change
//	AvgDailyAttendance relative percent change
//	NoShowRate         percentage-point difference
//	PeakUtilization    percentage-point difference
type Summary struct {
	TotalBookings      Metric `json:"total_bookings"`
	AvgDailyAttendance Metric `json:"avg_daily_attendance"`
	NoShowRate         Metric `json:"no_show_rate"`
	PeakUtilization    Metric `json:"peak_utilization"`
}

// ComputeSummary compares the current month against the previous one.
func ComputeSummary(current, previous PeriodData, maxCapacity int) Summary {
	return Summary{
		TotalBookings: relativeMetric(
			float64(len(current.Bookings)),
			float64(len(previous.Bookings)),
		),
		AvgDailyAttendance: relativeMetric(
			AverageDailyAttendance(current.Samples),
			AverageDailyAttendance(previous.Samples),
		),
		NoShowRate: pointsMetric(
			NoShowRate(current.Sessions),
			NoShowRate(previous.Sessions),
		),
		PeakUtilization: pointsMetric(
			PeakUtilization(current.Samples, maxCapacity),
			PeakUtilization(previous.Samples, maxCapacity),
		),
	}
}

// AverageDailyAttendance sums hourly occupancy per calendar date and
// divides by the number of dates that have at least one sample. Dates
// with no samples are left out of the denominator rather than counted
// as zero.
func AverageDailyAttendance(samples []storage.OccupancySample) float64 {
	perDay := make(map[time.Time]int)
	for _, s := range samples {
		if s.Date.IsZero() || s.IsDailySummary() {
			continue
		}
		perDay[s.Date] += s.HourlyOccupancy
	}
	if len(perDay) == 0 {
		return 0
	}

	total := 0
	for _, v := range perDay {
		total += v
	}
	return float64(total) / float64(len(perDay))
}

// NoShowRate is (Σbooked − Σattended) / Σbooked × 100, or 0 when nothing
// was booked.
func NoShowRate(sessions []storage.SessionOccurrence) float64 {
	booked, attended := 0, 0
	for _, s := range sessions {
		booked += s.BookedSlots
		attended += s.AttendedCount
	}
	return percent(float64(booked-attended), float64(booked))
}

// PeakUtilization is the highest hourly occupancy as a share of
// maxCapacity, or 0 when maxCapacity is not positive.
func PeakUtilization(samples []storage.OccupancySample, maxCapacity int) float64 {
	if maxCapacity <= 0 {
		return 0
	}
	peak := 0
	for _, s := range samples {
		if s.IsDailySummary() {
			continue
		}
		peak = max(peak, s.HourlyOccupancy)
	}
	return percent(float64(peak), float64(maxCapacity))
}
