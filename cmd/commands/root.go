package commands

// Root command for Cobra CLI
// Loads configuration and initializes logging before any subcommand runs
// Registers all subcommands (fetch, chart, serve, schedule)

import (
	"fmt"

	"channel-tracker/internal/infra/config"
	logging "channel-tracker/internal/infra/log"

	"github.com/spf13/cobra"
)

// cfg is populated by the root PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "channel-tracker",
	Short: "Channel Tracker - daily YouTube channel statistics collector",
	Long: `Channel Tracker records subscriber, view and video counts for a list of YouTube
channels once per run, keeps the history in CSV or SQLite, and renders it as PNG charts
or an interactive dashboard.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { logging.Sync() },
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("channels", "", "channel list file (JSON or YAML)")
	flags.String("data-dir", "", "directory for CSV files and the handle cache")
	flags.String("logs-dir", "", "directory for app.log")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("store", "", "store driver: csv or sqlite")
	flags.String("layout", "", "CSV layout: per-channel or shared")
	flags.String("sqlite-path", "", "SQLite database file")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Init(loaded.App.LogsDir, loaded.App.Debug); err != nil {
		return err
	}
	cfg = loaded
	return nil
}
