package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/iocache"
	"github.com/huangsam/kpiscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackend reads the history backend settings. An empty backend is NoneBackend.
func historyBackend() (schema.DatabaseBackend, string, error) {
	if err := readConfigFile(); err != nil {
		return "", "", err
	}
	if err := initLogger(); err != nil {
		return "", "", err
	}

	backend := schema.NoneBackend
	if s := viper.GetString("history-backend"); s != "" {
		backend = schema.DatabaseBackend(s)
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no source cache for history commands)
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetup() error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr

	return nil
}

// historyMigrateSetupWrapper wraps historyMigrateSetup to provide PreRunE for migrate command.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return historyMigrateSetup()
}

// historyStore returns the initialized history store or exits.
func historyStore() contract.HistoryStore {
	store := iocache.Manager.GetHistoryStore()
	if store == nil {
		contract.LogFatal("History is unavailable", errors.New("history backend is not configured"))
	}
	return store
}

// historyCmd focused on run history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by report commands.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded report runs and exports",
	Long: `Manage the history of composite and trend runs used for longitudinal reporting.

When enabled, kpiscore records every composite and trend run, storing:
- Run metadata (timestamp, granularity, window, weights, duration)
- The per-period values of the reported series

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show run history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Enable history for one run
  kpiscore composite --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  kpiscore history export --history-backend sqlite --output-file history`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete all recorded runs and their values.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  kpiscore history export --output-file backup
  kpiscore history clear`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, contract.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows run history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show detailed information about recorded runs.

Displays:
- Backend type and connection status
- Total number of runs and recorded values
- Last and oldest run timestamps
- Database table sizes

Examples:
  # Check run history status
  kpiscore history status`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := historyStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet for BI tools and analytics",
	Long: `Export all recorded runs to Parquet format for use with analytics tools.

Writes two files:
- <output-file>.runs.parquet   - metadata about each run
- <output-file>.values.parquet - per-period values of each run

Requires: --output-file parameter

Examples:
  # Export all data
  kpiscore history export --output-file kpi-history

  # Use with DuckDB for analysis
  duckdb -c "SELECT * FROM read_parquet('kpi-history.values.parquet') LIMIT 10"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportHistory(os.Stdout, historyStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  kpiscore history migrate --history-backend sqlite

  # Rollback to initial state
  kpiscore history migrate --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		version, err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Printf("History schema is at version %d.\n", version)
	},
}
