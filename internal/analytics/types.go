package analytics

import "math"

// Point is a labeled value for bar and line series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// XY is a chart coordinate whose x is a category label.
type XY struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// ChangeKind says how a Metric's Change compares the two periods.
type ChangeKind string

const (
	// RelativePercent is (current-previous)/previous*100, 0 when previous is 0.
	RelativePercent ChangeKind = "relative_percent"
	// PercentagePoints is current-previous for values that are already percentages.
	PercentagePoints ChangeKind = "percentage_points"
)

// Metric is a value for the current period alongside the prior period.
type Metric struct {
	Value    float64    `json:"value"`
	Previous float64    `json:"previous"`
	Change   float64    `json:"change"`
	Kind     ChangeKind `json:"change_kind"`
}

// RelativeChange returns the percent change from previous to current, or 0
// when previous is 0.
func RelativeChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func relativeMetric(current, previous float64) Metric {
	return Metric{
		Value:    round2(current),
		Previous: round2(previous),
		Change:   round2(RelativeChange(current, previous)),
		Kind:     RelativePercent,
	}
}

func pointsMetric(current, previous float64) Metric {
	return Metric{
		Value:    round2(current),
		Previous: round2(previous),
		Change:   round2(current - previous),
		Kind:     PercentagePoints,
	}
}

// percent returns part/whole*100, or 0 when whole is 0.
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
