package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/occupancy/internal/analytics"
)

type trendsJSON struct {
	Weekly  *analytics.WeeklySeries `json:"weekly,omitempty"`
	Monthly []analytics.Point       `json:"monthly,omitempty"`
}

// Execute implements the go-flags Commander interface for TrendsCommand.
func (c *TrendsCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}
	return c.executeWithEngine(context.Background(), engine)
}

func (c *TrendsCommand) executeWithEngine(ctx context.Context, engine *analytics.Engine) error {
	showWeekly := c.Weekly || !c.Monthly
	showMonthly := c.Monthly || !c.Weekly

	var out trendsJSON
	if showWeekly {
		w, err := engine.WeeklyTrend(ctx)
		if err != nil {
			return fmt.Errorf("compute weekly trend: %w", err)
		}
		out.Weekly = &w
	}
	if showMonthly {
		m, err := engine.MonthlyTrend(ctx)
		if err != nil {
			return fmt.Errorf("compute monthly trend: %w", err)
		}
		out.Monthly = m
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}

	if out.Weekly != nil {
		printWeekly(*out.Weekly)
	}
	if out.Monthly != nil {
		if out.Weekly != nil {
			fmt.Println()
		}
		printSeries("Bookings per month", out.Monthly)
	}
	return nil
}

func printWeekly(w analytics.WeeklySeries) {
	fmt.Printf("Week of %s\n", w.WeekStart)
	fmt.Printf("%-5s %9s %11s\n", "", "bookings", "attendance")
	for i := range w.Bookings {
		fmt.Printf("%-5s %9.0f %11.0f\n", w.Bookings[i].Label, w.Bookings[i].Value, w.Attendance[i].Value)
	}
}

func printSeries(title string, points []analytics.Point) {
	fmt.Println(title)
	maxV := 0.0
	for _, p := range points {
		maxV = max(maxV, p.Value)
	}
	for _, p := range points {
		fmt.Printf("  %-9s %6.0f %s\n", p.Label, p.Value, bar(p.Value, maxV, 30))
	}
}
