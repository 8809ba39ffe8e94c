/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the fleet billing engine. The root command loads
  configuration and the global logger for every subcommand.

COMMANDS:
  serve       Start the HTTP API (the default when no command is given)
  calculate   Run the engine offline over files and print JSON

CONFIGURATION:
  config.yaml in the working directory, .env, and FLEETBILL_* environment
  variables, in increasing precedence. See config/config.go.

EXAMPLES:
  # Serve on SQLite
  ./server serve --port 3000

  # Serve on PostgreSQL
  FLEETBILL_STORE_DRIVER=postgres FLEETBILL_STORE_DATABASE_URL=postgres://... ./server

  # Bill a week of timesheets
  ./server calculate --entries week.json --config plant_hire.yaml --rate 395 --group-by asset

SEE ALSO:
  - serve.go: HTTP server and store wiring
  - calculate.go: Offline runs
*/
package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/fleet-billing/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fleet-billing",
	Short: "Billable hours engine for plant and equipment hire",
	Long:  "Turns daily timesheet submissions into billable hours and cost per asset, applying weekend, public holiday, rain day and breakdown rules from a per-tenant billing config.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
