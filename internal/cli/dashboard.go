package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/runnerr0/occupancy/internal/analytics"
)

// Execute implements the go-flags Commander interface for DashboardCommand.
func (c *DashboardCommand) Execute(args []string) error {
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

func (c *DashboardCommand) executeWithEngine(ctx context.Context, engine *analytics.Engine) error {
	d, err := engine.Dashboard(ctx)
	if err != nil && !errors.Is(err, analytics.ErrAllGroupsFailed) {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		if perr := printJSON(d); perr != nil {
			return perr
		}
		return err
	}

	if d.Summary != nil {
		printSummary(engine, *d.Summary)
		fmt.Println()
	}
	if d.OccupancyCurve != nil {
		printOccupancy(occupancyJSON{Date: d.GeneratedAt.Format("2006-01-02"), Curve: d.OccupancyCurve}, d.GeneratedAt)
		fmt.Println()
	}
	if d.PeakHours != nil && d.BookingInsights != nil && d.Engagement != nil {
		printInsights(insightsJSON{PeakHours: *d.PeakHours, Bookings: *d.BookingInsights, Engagement: *d.Engagement})
		fmt.Println()
	}
	if d.WeeklyTrend != nil {
		printWeekly(*d.WeeklyTrend)
		fmt.Println()
	}
	if d.MonthlyTrend != nil {
		printSeries("Bookings per month", d.MonthlyTrend)
	}

	if len(d.Errors) > 0 {
		groups := make([]string, 0, len(d.Errors))
		for g := range d.Errors {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		fmt.Println()
		fmt.Println("Unavailable:")
		for _, g := range groups {
			fmt.Printf("  %-17s %s\n", g, d.Errors[g])
		}
	}
	return err
}
