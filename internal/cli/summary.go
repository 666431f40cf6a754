package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/occupancy/internal/analytics"
)

// Execute implements the go-flags Commander interface for SummaryCommand.
func (c *SummaryCommand) Execute(args []string) error {
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

func (c *SummaryCommand) executeWithEngine(ctx context.Context, engine *analytics.Engine) error {
	s, err := engine.Summary(ctx)
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}
	if c.globals != nil && c.globals.JSON {
		return printJSON(s)
	}
	printSummary(engine, s)
	return nil
}

func printSummary(engine *analytics.Engine, s analytics.Summary) {
	fmt.Printf("Summary for %s\n", engine.Today().Format("January 2006"))
	fmt.Println("==========================")
	fmt.Printf("%-22s %10s %10s %12s\n", "", "this month", "last month", "change")
	rows := []struct {
		name   string
		metric analytics.Metric
		format string
	}{
		{"Total bookings", s.TotalBookings, "%10.0f"},
		{"Avg daily attendance", s.AvgDailyAttendance, "%10.2f"},
		{"No-show rate", s.NoShowRate, "%9.2f%%"},
		{"Peak utilization", s.PeakUtilization, "%9.2f%%"},
	}
	for _, r := range rows {
		fmt.Printf("%-22s "+r.format+" "+r.format+" %12s\n", r.name, r.metric.Value, r.metric.Previous, formatChange(r.metric))
	}
}
