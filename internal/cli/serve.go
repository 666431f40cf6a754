package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/occupancy/internal/api"
	"github.com/runnerr0/occupancy/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Host != "" {
		a.cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		a.cfg.Server.Port = c.Port
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}
	log := a.log.Logger
	srv := api.NewServer(a.cfg.Addr(), log, os.Stdout, &api.Handlers{Engine: engine, Log: log})

	var sched *scheduler.Scheduler
	if a.cfg.Rollup.Enabled && !c.NoRollup {
		loc, err := a.cfg.Location()
		if err != nil {
			return err
		}
		job := scheduler.NewRollupJob(a.store, loc, scheduler.WithJobLogger(log))
		if sched, err = scheduler.New(job, a.cfg.Rollup.Schedule, loc, log); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sched != nil {
		sched.Start()
		log.Info("next rollup", "at", sched.Next())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				log.Warn("rollup scheduler did not stop cleanly", "err", err)
			}
		}
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
