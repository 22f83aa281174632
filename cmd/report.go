package cmd

import (
	"github.com/huangsam/kpiscore/core"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/spf13/cobra"
)

// commitmentCmd shows commitment percentages per period.
var commitmentCmd = &cobra.Command{
	Use:   "commitment [kind]",
	Short: "Show commitment percentages per period.",
	Long: `Compute the share of work completed on time for each period.

Commitment kinds:
- audit              - audits completed in the period they were planned for
- capa               - CAPAs submitted by their due date
- capa_effectiveness - submitted CAPAs whose effectiveness verification passed
- complaint          - complaints closed within 60 days of opening
- training           - training completed by its due date

Without a kind, every commitment is shown. Cells are empty when nothing was due.

Examples:
  # All commitments by month
  kpiscore commitment

  # Audit commitment by quarter for 2024
  kpiscore commitment audit --granularity quarter --start 2024Q1 --end 2024Q4

  # Export training commitment to CSV
  kpiscore commitment training --output csv --output-file training.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: kindSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCommitment(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute commitment", err)
		}
	},
}

// trendCmd shows one commitment with its rolling average and trendline.
var trendCmd = &cobra.Command{
	Use:   "trend <kind>",
	Short: "Show a commitment with its rolling average and trendline.",
	Long: `Compute one commitment together with its 3-period rolling average and a linear trendline.

The current period is still accumulating, so it is left out of the rolling average
and the trendline fit. With --partial-start the first period of the process is left
out of the fit as well. Every exclusion is listed under the table.

Examples:
  # Training commitment trend by month
  kpiscore trend training

  # CAPA commitment trend by quarter since 2022
  kpiscore trend capa --granularity quarter --start 2022Q1`,
	Args:    cobra.ExactArgs(1),
	PreRunE: kindSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTrend(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute trend", err)
		}
	},
}

// countsCmd shows record counts per period.
var countsCmd = &cobra.Command{
	Use:   "counts <category>",
	Short: "Show record counts per period, optionally broken down by a column.",
	Long: `Count the records of a category per period of a timestamp column.

Categories: audits, capas, complaints, training, usage

With --breakdown, counts are split by the values of a categorical column. Records
with an empty value are counted under Unknown. A CAPA breakdown by Status groups
CAPAs into Open and Closed.

Examples:
  # Audits completed per month
  kpiscore counts audits

  # Open and closed CAPAs by creation quarter
  kpiscore counts capas --column "Date Created" --breakdown Status --granularity quarter

  # Complaints by device type
  kpiscore counts complaints --breakdown "Device Type"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: categorySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCounts(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute counts", err)
		}
	},
}

// compositeCmd shows the weighted composite score.
var compositeCmd = &cobra.Command{
	Use:   "composite",
	Short: "Show the weighted composite commitment score per period.",
	Long: `Combine the audit, CAPA, complaint and training commitments into one score per period.

Score = offset + sum(weight x commitment). Weights must sum to 1. A period without
every weighted commitment has no score, and the score starts at the latest first
period of its components. Runs are recorded when a history backend is configured.

Examples:
  # Composite score with the default weights
  kpiscore composite

  # Custom weights
  kpiscore composite --weights-override "audits:0.5,training:0.5"

  # Weights from a config file
  kpiscore composite --config .kpiscore.yaml`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteComposite(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute composite", err)
		}
	},
}

// ratesCmd shows complaint rates per usage.
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show complaints per 100 runs and per active account.",
	Long: `Relate the complaints opened in each period to the usage recorded in it.

Rates start at the first period with usage data and are empty when a period has no runs.

Examples:
  # Complaint rates by quarter
  kpiscore rates --granularity quarter`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRates(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute complaint rates", err)
		}
	},
}
