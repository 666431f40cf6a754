package analytics

import (
	"fmt"

	"github.com/runnerr0/occupancy/internal/calendar"
)

// Bucket is one configured time range of the operating day.
type Bucket struct {
	Label string
	Start calendar.TimeOfDay
	End   calendar.TimeOfDay
}

// SlotSample is an occupancy reading keyed by its bucket start time.
type SlotSample struct {
	Start     calendar.TimeOfDay
	Occupancy int
}

// DefaultBuckets returns hourly buckets from 06:00 to 19:00 labeled
// "6-7 AM" through "6-7 PM".
func DefaultBuckets() []Bucket {
	buckets := make([]Bucket, 0, 13)
	for h := 6; h < 19; h++ {
		buckets = append(buckets, Bucket{
			Label: hourLabel(h),
			Start: calendar.TimeOfDay(h * 60),
			End:   calendar.TimeOfDay((h + 1) * 60),
		})
	}
	return buckets
}

// hourLabel renders the hour range [h, h+1) in 12-hour form, suffixed with
// the meridiem of the end hour.
func hourLabel(h int) string {
	twelve := func(x int) int {
		x %= 12
		if x == 0 {
			return 12
		}
		return x
	}
	suffix := "AM"
	if (h+1)%24 >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d-%d %s", twelve(h), twelve(h+1), suffix)
}

// ValidateBuckets checks that buckets are non-empty, ascending and
// contiguous: each bucket starts where the previous one ended.
func ValidateBuckets(buckets []Bucket) error {
	if len(buckets) == 0 {
		return &ConfigurationError{Field: "buckets", Reason: "at least one bucket is required"}
	}
	for i, b := range buckets {
		if !b.Start.Valid() || !b.End.Valid() {
			return &ConfigurationError{Field: "buckets", Reason: fmt.Sprintf("bucket %q has an invalid time", b.Label)}
		}
		if b.End <= b.Start {
			return &ConfigurationError{Field: "buckets", Reason: fmt.Sprintf("bucket %q ends before it starts", b.Label)}
		}
		if i > 0 && b.Start != buckets[i-1].End {
			return &ConfigurationError{
				Field:  "buckets",
				Reason: fmt.Sprintf("bucket %q starts at %s, previous ends at %s", b.Label, b.Start, buckets[i-1].End),
			}
		}
	}
	return nil
}

// BucketSamples maps sparse samples onto the configured buckets. The
// result has exactly one entry per bucket, in configured order. A bucket
// takes the first sample whose start time equals its own; buckets without
// a sample are 0.
func BucketSamples(buckets []Bucket, samples []SlotSample) []XY {
	byStart := make(map[calendar.TimeOfDay]int, len(samples))
	for _, s := range samples {
		if _, seen := byStart[s.Start]; !seen {
			byStart[s.Start] = s.Occupancy
		}
	}

	out := make([]XY, len(buckets))
	for i, b := range buckets {
		out[i] = XY{X: b.Label, Y: float64(byStart[b.Start])}
	}
	return out
}
