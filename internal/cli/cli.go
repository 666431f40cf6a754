package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status    *StatusCommand
	Summary   *SummaryCommand
	Trends    *TrendsCommand
	Insights  *InsightsCommand
	Occupancy *OccupancyCommand
	Dashboard *DashboardCommand
	Rollup    *RollupCommand
	Import    *ImportCommand
	Serve     *ServeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "occupancy"
	parser.LongDescription = "Occupancy and booking analytics for a capacity-limited facility."

	cmds := &commands{
		Status:    &StatusCommand{globals: &globals, version: version},
		Summary:   &SummaryCommand{globals: &globals},
		Trends:    &TrendsCommand{globals: &globals},
		Insights:  &InsightsCommand{globals: &globals},
		Occupancy: &OccupancyCommand{globals: &globals},
		Dashboard: &DashboardCommand{globals: &globals},
		Rollup:    &RollupCommand{globals: &globals},
		Import:    &ImportCommand{globals: &globals},
		Serve:     &ServeCommand{globals: &globals},
	}

	parser.AddCommand("status", "Show database statistics", "Show row counts, rollup coverage, and configuration summary.", cmds.Status)
	parser.AddCommand("summary", "Month-over-month KPIs", "Compare total bookings, average daily attendance, no-show rate and peak utilization with the previous month.", cmds.Summary)
	parser.AddCommand("trends", "Weekly and monthly trends", "Show bookings and attendance per weekday for this ISO week and bookings per month for the last six months.", cmds.Trends)
	parser.AddCommand("insights", "Peak hours, booking behavior, engagement", "Show today's peak hours, this month's booking behavior and user engagement.", cmds.Insights)
	parser.AddCommand("occupancy", "Live occupancy and daily curve", "Show the occupancy of the session nearest to now and the per-bucket curve for a day.", cmds.Occupancy)
	parser.AddCommand("dashboard", "All metric groups", "Compute every metric group concurrently. Failed groups are reported without hiding the rest.", cmds.Dashboard)
	parser.AddCommand("rollup", "Write completed hourly rollups", "Write analytics rows for completed buckets of today and yesterday and yesterday's daily summary. Safe to repeat.", cmds.Rollup)
	parser.AddCommand("import", "Import fixture data", "Load users, bookings and session occurrences from a YAML file.", cmds.Import)
	parser.AddCommand("serve", "Run the HTTP API", "Serve the analytics HTTP API and run the rollup scheduler.", cmds.Serve)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("occupancy %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
