// Package commands holds the drugbase command line: the HTTP server and the
// maintenance tasks that share its configuration.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giygas/drugbase-api/config"
	"github.com/giygas/drugbase-api/logging"
)

var (
	// Global flags
	dbDriver string
	dbDSN    string
	logDir   string

	// cfg is loaded once per invocation, before any subcommand runs
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "drugbase",
	Short: "drugbase - drug, generic and disease lookup service",
	Long: `drugbase serves prefix searches over a catalog of brand drugs, their
generic alternatives and the diseases they treat.

Configuration comes from the environment (and an optional .env file);
the database flags override DB_DRIVER and DB_DSN.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := logging.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close log file:", err)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal: setup reads rootCmd's flags,
	// which would otherwise form an initialization cycle
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup()
	}
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite or postgres (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "Database file or connection string (overrides DB_DSN)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for rotating JSON log files, console only when empty")
}

// setup loads the configuration and installs the global logger
func setup() error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if rootCmd.PersistentFlags().Changed("db-driver") {
		loaded.DBDriver = dbDriver
	}
	if rootCmd.PersistentFlags().Changed("db-dsn") {
		loaded.DBDSN = dbDSN
	}
	cfg = loaded

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            logDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	return nil
}
