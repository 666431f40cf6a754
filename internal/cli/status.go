package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/config"
	"github.com/runnerr0/occupancy/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version             string `json:"version"`
	DatabasePath        string `json:"database_path"`
	DatabaseSizeBytes   int64  `json:"database_size_bytes"`
	SchemaVersion       int    `json:"schema_version"`
	TotalUsers          int64  `json:"total_users"`
	TotalBookings       int64  `json:"total_bookings"`
	TotalSessions       int64  `json:"total_sessions"`
	TotalHourlyRollups  int64  `json:"total_hourly_rollups"`
	TotalDailySummaries int64  `json:"total_daily_summaries"`
	OldestRollup        string `json:"oldest_rollup,omitempty"`
	NewestRollup        string `json:"newest_rollup,omitempty"`
	MaxCapacity         int    `json:"max_capacity"`
	Timezone            string `json:"timezone"`
	Buckets             int    `json:"buckets"`
	RollupSchedule      string `json:"rollup_schedule,omitempty"`
	ServerAddr          string `json:"server_addr"`
	ServerRunning       bool   `json:"server_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithStore(a.store, a.cfg, a.dbPath)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(store *storage.SQLiteStore, cfg *config.Config, dbPath string) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := statusJSON{
		Version:             c.version,
		DatabasePath:        dbPath,
		DatabaseSizeBytes:   stats.DatabaseSizeBytes,
		SchemaVersion:       stats.SchemaVersion,
		TotalUsers:          stats.TotalUsers,
		TotalBookings:       stats.TotalBookings,
		TotalSessions:       stats.TotalSessions,
		TotalHourlyRollups:  stats.TotalHourlyRollups,
		TotalDailySummaries: stats.TotalDailySummaries,
		MaxCapacity:         cfg.Capacity.Max,
		Timezone:            cfg.Timezone,
		Buckets:             len(cfg.Buckets),
		ServerAddr:          cfg.Addr(),
		ServerRunning:       checkServer(cfg.Addr()),
	}
	if cfg.Rollup.Enabled {
		out.RollupSchedule = cfg.Rollup.Schedule
	}
	if !stats.OldestRollup.IsZero() {
		out.OldestRollup = calendar.FormatDate(stats.OldestRollup)
		out.NewestRollup = calendar.FormatDate(stats.NewestRollup)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	return c.printStatusHuman(out)
}

func (c *StatusCommand) printStatusHuman(s statusJSON) error {
	fmt.Println("Occupancy Status")
	fmt.Println("================")
	fmt.Printf("Version:       %s\n", s.Version)
	fmt.Printf("Database:      %s (%s)\n", s.DatabasePath, formatBytes(s.DatabaseSizeBytes))
	fmt.Printf("Schema:        v%d\n", s.SchemaVersion)
	fmt.Printf("Users:         %s\n", formatNumber(s.TotalUsers))
	fmt.Printf("Bookings:      %s\n", formatNumber(s.TotalBookings))
	fmt.Printf("Sessions:      %s\n", formatNumber(s.TotalSessions))
	fmt.Printf("Rollups:       %s hourly, %s daily\n", formatNumber(s.TotalHourlyRollups), formatNumber(s.TotalDailySummaries))
	if s.OldestRollup != "" {
		fmt.Printf("Covering:      %s .. %s\n", s.OldestRollup, s.NewestRollup)
	}

	fmt.Println()
	fmt.Printf("Capacity:      %d\n", s.MaxCapacity)
	fmt.Printf("Timezone:      %s\n", s.Timezone)
	fmt.Printf("Buckets:       %d\n", s.Buckets)
	if s.RollupSchedule != "" {
		fmt.Printf("Rollup:        %s\n", s.RollupSchedule)
	} else {
		fmt.Println("Rollup:        disabled")
	}

	fmt.Println()
	if s.ServerRunning {
		fmt.Printf("Server:        running on %s\n", s.ServerAddr)
	} else {
		fmt.Println("Server:        not running")
	}

	return nil
}

// checkServer reports whether the API answers /health at addr within one
// second.
func checkServer(addr string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + addr + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
