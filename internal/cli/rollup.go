package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/occupancy/internal/scheduler"
)

// Execute implements the go-flags Commander interface for RollupCommand.
func (c *RollupCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	job := scheduler.NewRollupJob(a.store, loc, scheduler.WithJobLogger(a.log.Logger))
	return c.executeWithJob(context.Background(), job)
}

func (c *RollupCommand) executeWithJob(ctx context.Context, job *scheduler.RollupJob) error {
	res, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("rollup: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(res)
	}
	fmt.Printf("Hourly rows written:  %d\n", res.HourlyWritten)
	fmt.Printf("Already present:      %d\n", res.HourlySkipped)
	if res.DailyWritten {
		fmt.Println("Daily summary:        written")
	} else {
		fmt.Println("Daily summary:        unchanged")
	}
	return nil
}
