package analytics

import (
	"time"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/storage"
)

// TrendMonths is the length of the monthly trend series.
const TrendMonths = 6

var weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeeklySeries holds per-weekday booking and attendance counts for one
// ISO week.
type WeeklySeries struct {
	WeekStart  string  `json:"week_start"`
	Bookings   []Point `json:"bookings"`
	Attendance []Point `json:"attendance"`
}

// isoWeekdayIndex maps Monday to 0 and Sunday to 6.
func isoWeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// WeeklyTrend buckets bookings by session date and attendance by
// occurrence date into Mon..Sun for the ISO week containing today. Rows
// outside the week are ignored; weekdays without rows are 0.
func WeeklyTrend(today time.Time, bookings []storage.Booking, sessions []storage.SessionOccurrence) WeeklySeries {
	week := calendar.ISOWeekRange(today)

	var booked, attended [7]float64
	for _, b := range bookings {
		if b.SessionDate.IsZero() || !week.Contains(b.SessionDate) {
			continue
		}
		booked[isoWeekdayIndex(b.SessionDate)]++
	}
	for _, s := range sessions {
		if s.Date.IsZero() || !week.Contains(s.Date) {
			continue
		}
		attended[isoWeekdayIndex(s.Date)] += float64(s.AttendedCount)
	}

	series := WeeklySeries{
		WeekStart:  calendar.FormatDate(week.From),
		Bookings:   make([]Point, 7),
		Attendance: make([]Point, 7),
	}
	for i, label := range weekdayLabels {
		series.Bookings[i] = Point{Label: label, Value: booked[i]}
		series.Attendance[i] = Point{Label: label, Value: attended[i]}
	}
	return series
}

// MonthlyTrendRange is the date range covered by MonthlyTrend for today.
func MonthlyTrendRange(today time.Time) calendar.DateRange {
	months := calendar.LastNMonths(today, TrendMonths)
	return calendar.DateRange{From: months[0], To: calendar.EndOfMonth(today)}
}

// MonthlyTrend counts bookings per calendar month for the six months
// ending with today's month, oldest first. The result always has six
// points; months without bookings are 0.
func MonthlyTrend(today time.Time, bookings []storage.Booking) []Point {
	months := calendar.LastNMonths(today, TrendMonths)
	index := make(map[string]int, len(months))
	out := make([]Point, len(months))
	for i, m := range months {
		index[calendar.MonthKey(m)] = i
		out[i] = Point{Label: m.Format("Jan 2006")}
	}

	for _, b := range bookings {
		if b.SessionDate.IsZero() {
			continue
		}
		if i, ok := index[calendar.MonthKey(b.SessionDate)]; ok {
			out[i].Value++
		}
	}
	return out
}
