package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/calendar"
)

type occupancyJSON struct {
	Current *analytics.CurrentOccupancy `json:"current,omitempty"`
	Date    string                      `json:"date"`
	Curve   []analytics.XY              `json:"curve"`
}

// Execute implements the go-flags Commander interface for OccupancyCommand.
func (c *OccupancyCommand) Execute(args []string) error {
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

// executeWithEngine prints the live reading only when the curve is for today.
func (c *OccupancyCommand) executeWithEngine(ctx context.Context, engine *analytics.Engine) error {
	date := engine.Today()
	if c.Date != "" {
		d, err := calendar.ParseDate(c.Date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", c.Date)
		}
		date = d
	}

	out := occupancyJSON{Date: calendar.FormatDate(date)}
	if date.Equal(engine.Today()) {
		cur, err := engine.CurrentOccupancy(ctx)
		if err != nil {
			return fmt.Errorf("resolve current occupancy: %w", err)
		}
		out.Current = &cur
	}
	curve, err := engine.OccupancyCurve(ctx, date)
	if err != nil {
		return fmt.Errorf("compute occupancy curve: %w", err)
	}
	out.Curve = curve

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	printOccupancy(out, engine.Now())
	return nil
}

func printOccupancy(o occupancyJSON, now time.Time) {
	if o.Current != nil {
		fmt.Printf("Now (%s)\n", now.Format("15:04"))
		if o.Current.Slot == nil {
			fmt.Println("  No sessions today")
		} else {
			qualifier := "nearest session"
			if o.Current.Exact {
				qualifier = "in session"
			}
			fmt.Printf("  %d / %d (%.2f%%), %s %s-%s\n",
				o.Current.Occupancy, o.Current.Capacity, o.Current.UtilizationPct,
				qualifier, o.Current.Slot.Start, o.Current.Slot.End)
		}
		fmt.Println()
	}

	fmt.Printf("Occupancy on %s\n", o.Date)
	maxY := 0.0
	for _, p := range o.Curve {
		maxY = max(maxY, p.Y)
	}
	for _, p := range o.Curve {
		fmt.Printf("  %-10s %4.0f %s\n", p.X, p.Y, bar(p.Y, maxY, 30))
	}
}
