// Package calendar holds the date arithmetic used by the analytics engine.
//
// A calendar date is represented as a time.Time at midnight UTC. Converting a
// wall-clock instant into a date goes through DateOf, which reads the
// year/month/day in the instant's own location, so callers decide the zone
// once and every month and week boundary after that is zone-free.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the storage and display layout for calendar dates.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date. Out-of-range values normalize the way
// time.Date does (e.g. February 30 becomes March 1 or 2).
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string. A leading timestamp form
// ("2024-03-01T00:00:00Z") is accepted and truncated to its date part.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d time.Time) time.Time {
	return NewDate(d.Year(), d.Month(), 1)
}

// EndOfMonth returns the last day of d's month (inclusive).
func EndOfMonth(d time.Time) time.Time {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// StartOfISOWeek returns the Monday of the ISO week containing d.
func StartOfISOWeek(d time.Time) time.Time {
	d = DateOf(d)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// AddMonths shifts the first day of d's month by n months. Working from the
// first of the month avoids time.AddDate normalizing Jan 31 + 1 month into March.
func AddMonths(d time.Time, n int) time.Time {
	return NewDate(d.Year(), d.Month()+time.Month(n), 1)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// MonthRange returns the full calendar month containing d.
func MonthRange(d time.Time) DateRange {
	return DateRange{From: StartOfMonth(d), To: EndOfMonth(d)}
}

// PreviousMonthRange returns the full calendar month before the one containing d.
func PreviousMonthRange(d time.Time) DateRange {
	return MonthRange(AddMonths(d, -1))
}

// ISOWeekRange returns Monday through Sunday of the week containing d.
func ISOWeekRange(d time.Time) DateRange {
	start := StartOfISOWeek(d)
	return DateRange{From: start, To: start.AddDate(0, 0, 6)}
}

// DayRange returns a range covering the single date d.
func DayRange(d time.Time) DateRange {
	d = DateOf(d)
	return DateRange{From: d, To: d}
}

// Contains reports whether the calendar date d lies within the range.
func (r DateRange) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(r.From) && !d.After(r.To)
}

// Days returns the number of dates in the range, or 0 for an inverted range.
func (r DateRange) Days() int {
	if r.To.Before(r.From) {
		return 0
	}
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// LastNMonths returns the first day of each of the n months ending with d's
// month, oldest first.
func LastNMonths(d time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = AddMonths(d, i-(n-1))
	}
	return months
}

// MonthKey identifies a calendar month, e.g. "2024-02".
func MonthKey(d time.Time) string {
	return d.Format("2006-01")
}
