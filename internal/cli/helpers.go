package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/config"
	"github.com/runnerr0/occupancy/internal/logging"
	"github.com/runnerr0/occupancy/internal/storage"
)

// app bundles what every database-backed command needs.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	store  *storage.SQLiteStore
	dbPath string
	log    *logging.DualLogger
}

// loadConfig loads the file named by --config, or the default path
// (creating it on first run), and validates it.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration, sets up logging and opens the database.
// Logs go to stderr so --json output on stdout stays parseable.
func openApp(globals *GlobalFlags) (*app, error) {
	cfg, err := loadConfig(globals.Config)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if globals.Verbose {
		level = "debug"
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, level, logPath)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		log.Close()
		return nil, err
	}
	store, db, err := openStore(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		log.Close()
		return nil, err
	}

	return &app{cfg: cfg, db: db, store: store, dbPath: dbPath, log: log}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.db.Close()
	a.log.Close()
}

// engine builds an analytics engine over the app's store.
func (a *app) engine() (*analytics.Engine, error) {
	settings, err := a.cfg.Settings()
	if err != nil {
		return nil, err
	}
	return analytics.NewEngine(a.store, settings, analytics.WithLogger(a.log.Logger))
}

// openStore opens the database at dbPath, runs migrations, and returns a
// ready-to-use store and the underlying *sql.DB.
func openStore(dbPath, journalMode string) (*storage.SQLiteStore, *sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db).WithJournalMode(journalMode)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatChange renders a metric change with its unit.
func formatChange(m analytics.Metric) string {
	unit := "%"
	if m.Kind == analytics.PercentagePoints {
		unit = " pp"
	}
	return fmt.Sprintf("%+.2f%s", m.Change, unit)
}

// bar renders v as a run of '#' scaled so that maxV fills width.
func bar(v, maxV float64, width int) string {
	if maxV <= 0 || v <= 0 {
		return ""
	}
	n := int(v / maxV * float64(width))
	if n == 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
