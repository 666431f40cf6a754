package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/calendar"
)

// Default config file path.
const DefaultConfigPath = "~/.config/occupancy/config.yaml"

// Config holds all occupancy configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Capacity CapacityConfig `yaml:"capacity"`
	Buckets  []BucketConfig `yaml:"buckets"`
	// Timezone is an IANA name or "Local". Calendar boundaries (today,
	// month, ISO week) are computed in this zone.
	Timezone   string        `yaml:"timezone"`
	MemberRole string        `yaml:"member_role"`
	Server     ServerConfig  `yaml:"server"`
	Rollup     RollupConfig  `yaml:"rollup"`
	Logging    LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

// CapacityConfig holds the facility capacity. Max is used everywhere a
// maximum capacity is needed: peak utilization and sessions without an
// override.
type CapacityConfig struct {
	Max int `yaml:"max"`
}

// BucketConfig is one time bucket of the operating day. Start and End
// are HH:MM.
type BucketConfig struct {
	Label string `yaml:"label"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RollupConfig controls the scheduled hourly rollup.
type RollupConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a standard five-field cron spec.
	Schedule string `yaml:"schedule"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Normalize fills zero values with defaults so partially written files
// still load. Values that are present but wrong are left for Validate.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Storage.SQLiteFile == "" {
		c.Storage.SQLiteFile = def.Storage.SQLiteFile
	}
	if c.Storage.SQLiteJournalMode == "" {
		c.Storage.SQLiteJournalMode = def.Storage.SQLiteJournalMode
	}
	if len(c.Buckets) == 0 {
		c.Buckets = def.Buckets
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.MemberRole == "" {
		c.MemberRole = def.MemberRole
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Rollup.Schedule == "" {
		c.Rollup.Schedule = def.Rollup.Schedule
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate reports the first invalid setting as an
// *analytics.ConfigurationError.
func (c *Config) Validate() error {
	_, err := c.Settings()
	if err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &analytics.ConfigurationError{Field: "server.port", Reason: fmt.Sprintf("%d is out of range", c.Server.Port)}
	}
	if _, err := cron.ParseStandard(c.Rollup.Schedule); err != nil {
		return &analytics.ConfigurationError{Field: "rollup.schedule", Reason: err.Error()}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &analytics.ConfigurationError{Field: "timezone", Reason: err.Error()}
	}
	return loc, nil
}

// Settings converts the file representation into engine settings and
// validates them.
func (c *Config) Settings() (analytics.Settings, error) {
	loc, err := c.Location()
	if err != nil {
		return analytics.Settings{}, err
	}

	buckets := make([]analytics.Bucket, 0, len(c.Buckets))
	for i, b := range c.Buckets {
		start, err := calendar.ParseTimeOfDay(b.Start)
		if err != nil {
			return analytics.Settings{}, &analytics.ConfigurationError{
				Field: fmt.Sprintf("buckets[%d].start", i), Reason: err.Error(),
			}
		}
		end, err := calendar.ParseTimeOfDay(b.End)
		if err != nil {
			return analytics.Settings{}, &analytics.ConfigurationError{
				Field: fmt.Sprintf("buckets[%d].end", i), Reason: err.Error(),
			}
		}
		buckets = append(buckets, analytics.Bucket{Label: b.Label, Start: start, End: end})
	}

	s := analytics.Settings{
		MaxCapacity: c.Capacity.Max,
		Buckets:     buckets,
		Location:    loc,
		MemberRole:  c.MemberRole,
	}
	if err := s.Validate(); err != nil {
		return analytics.Settings{}, err
	}
	return s, nil
}

// DBPath returns the expanded path of the SQLite database file.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath returns the expanded log file path, or "" when file logging is
// off. A relative file is placed under the storage directory.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	file, err := expandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
