package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/occupancy/internal/analytics"
)

type insightsJSON struct {
	PeakHours  analytics.PeakHoursInsight  `json:"peak_hours"`
	Bookings   analytics.BookingInsight    `json:"bookings"`
	Engagement analytics.EngagementInsight `json:"engagement"`
}

// Execute implements the go-flags Commander interface for InsightsCommand.
func (c *InsightsCommand) Execute(args []string) error {
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

func (c *InsightsCommand) executeWithEngine(ctx context.Context, engine *analytics.Engine) error {
	var out insightsJSON
	var err error
	if out.PeakHours, err = engine.PeakHours(ctx); err != nil {
		return fmt.Errorf("compute peak hours: %w", err)
	}
	if out.Bookings, err = engine.BookingInsights(ctx); err != nil {
		return fmt.Errorf("compute booking insights: %w", err)
	}
	if out.Engagement, err = engine.Engagement(ctx); err != nil {
		return fmt.Errorf("compute engagement: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	printInsights(out)
	return nil
}

func formatSlot(s *analytics.SlotValue) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%s-%s (%d)", s.Start, s.End, s.Occupancy)
}

func printInsights(in insightsJSON) {
	fmt.Println("Peak Hours (today)")
	fmt.Printf("  Morning peak:    %s\n", formatSlot(in.PeakHours.MorningPeak))
	fmt.Printf("  Afternoon peak:  %s\n", formatSlot(in.PeakHours.AfternoonPeak))
	fmt.Printf("  Lowest usage:    %s\n", formatSlot(in.PeakHours.LowestUsage))

	fmt.Println()
	fmt.Println("Booking Behavior (this month)")
	fmt.Printf("  Bookings:        %s\n", formatNumber(int64(in.Bookings.TotalBookings)))
	if in.Bookings.AvgLeadTimeDays != nil {
		fmt.Printf("  Avg lead time:   %.2f days\n", *in.Bookings.AvgLeadTimeDays)
	} else {
		fmt.Println("  Avg lead time:   -")
	}
	fmt.Printf("  Cancellations:   %.2f%%\n", in.Bookings.CancellationRate)
	fmt.Printf("  Same-day:        %.2f%%\n", in.Bookings.SameDayRate)

	e := in.Engagement
	fmt.Println()
	fmt.Println("Engagement (this month)")
	if e.TotalMembers != nil {
		fmt.Printf("  Active users:    %d of %s members\n", e.ActiveUsers, formatNumber(*e.TotalMembers))
	} else {
		fmt.Printf("  Active users:    %d\n", e.ActiveUsers)
	}
	fmt.Printf("  Regular:         %d (%.2f%%)\n", e.RegularUsers, e.RegularRate)
	fmt.Printf("  New:             %d (%.2f%%)\n", e.NewUsers, e.NewRate)
	fmt.Printf("  Returning:       %d (%.2f%%)\n", e.ReturningUsers, e.ReturningRate)
}
