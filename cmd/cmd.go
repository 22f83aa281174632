// Package cmd defines the command-line interface for kpiscore.
package cmd

import (
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(commitmentCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(countsCmd)
	rootCmd.AddCommand(compositeCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("granularity", string(schema.Month), "Period granularity: month or quarter or year")
	rootCmd.PersistentFlags().String("start", "", "First displayed period (2025-01, 2025-Q1, 2025 or a date)")
	rootCmd.PersistentFlags().String("end", "", "Last displayed period, inclusive")
	rootCmd.PersistentFlags().String("as-of", "", "Date the current period is derived from (defaults to today)")
	rootCmd.PersistentFlags().String("epoch", "", "First day of the canonical period range (defaults to 2016-10-26)")
	rootCmd.PersistentFlags().StringP("filter", "f", "", "Record filters (format: 'column=value,column=value')")
	rootCmd.PersistentFlags().Bool("partial-start", false, "Exclude the first period of each process from trendlines")
	rootCmd.PersistentFlags().String("source-dir", contract.DefaultSourceDir, "Directory holding <category>.csv or <category>.json exports")
	rootCmd.PersistentFlags().String("source-format", string(schema.CSVSource), "Source file format: csv or json")
	rootCmd.PersistentFlags().String("source-url", "", "Base URL to fetch <category> records from instead of source-dir")
	rootCmd.PersistentFlags().String("source-timeout", "", "Timeout for source-url requests (e.g., 30s)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent source loads")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: trace or debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "Optional rotating log file")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of countsCmd to Viper
	countsCmd.Flags().String("column", "", "Timestamp column to bucket records by")
	countsCmd.Flags().String("breakdown", "", "Categorical column to break counts down by")
	if err := viper.BindPFlags(countsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding counts flags", err)
	}

	// Bind all flags of compositeCmd to Viper
	compositeCmd.Flags().String("weights-override", "", "Composite weights (format: 'audits:0.2,capas:0.25,complaints:0.35,training:0.2')")
	compositeCmd.Flags().Float64("composite-offset", schema.CompositeOffset, "Constant added to every composite score")
	if err := viper.BindPFlags(compositeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding composite flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("addr", contract.DefaultServeAddr, "Address for the HTTP API to listen on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
