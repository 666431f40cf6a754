package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand shows database statistics and a configuration summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SummaryCommand prints month-over-month KPIs.
type SummaryCommand struct {
	globals *GlobalFlags
}

// TrendsCommand prints weekly and monthly booking trends.
type TrendsCommand struct {
	Weekly  bool `long:"weekly" description:"Only show the current ISO week"`
	Monthly bool `long:"monthly" description:"Only show the last six months"`

	globals *GlobalFlags
}

// InsightsCommand prints peak hours, booking behavior and user engagement.
type InsightsCommand struct {
	globals *GlobalFlags
}

// OccupancyCommand prints live occupancy and the per-bucket curve for a day.
type OccupancyCommand struct {
	Date string `long:"date" description:"Show the curve for this date (YYYY-MM-DD) instead of today"`

	globals *GlobalFlags
}

// DashboardCommand prints every metric group at once.
type DashboardCommand struct {
	globals *GlobalFlags
}

// RollupCommand writes completed hourly buckets and yesterday's summary.
type RollupCommand struct {
	globals *GlobalFlags
}

// ImportCommand loads users, bookings and sessions from a YAML file.
type ImportCommand struct {
	File string `long:"file" short:"f" description:"YAML fixture file (required)" required:"true"`

	globals *GlobalFlags
}

// ServeCommand runs the HTTP API and the rollup scheduler.
type ServeCommand struct {
	Host     string `long:"host" description:"Override listen host"`
	Port     int    `long:"port" description:"Override listen port"`
	NoRollup bool   `long:"no-rollup" description:"Do not run the rollup scheduler"`

	globals *GlobalFlags
}
