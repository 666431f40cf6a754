package config

import "github.com/runnerr0/occupancy/internal/analytics"

// DefaultMaxCapacity is the facility capacity used when none is configured.
const DefaultMaxCapacity = 50

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/occupancy",
			SQLiteFile:        "occupancy.db",
			SQLiteJournalMode: "wal",
		},
		Capacity: CapacityConfig{
			Max: DefaultMaxCapacity,
		},
		Buckets:    DefaultBuckets(),
		Timezone:   "Local",
		MemberRole: "member",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8722,
		},
		Rollup: RollupConfig{
			Enabled:  true,
			Schedule: "5 * * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "occupancy.log",
		},
	}
}

// DefaultBuckets returns the hourly 06:00-19:00 buckets in file form.
func DefaultBuckets() []BucketConfig {
	src := analytics.DefaultBuckets()
	out := make([]BucketConfig, len(src))
	for i, b := range src {
		out[i] = BucketConfig{Label: b.Label, Start: b.Start.String(), End: b.End.String()}
	}
	return out
}
