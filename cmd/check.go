package cmd

import (
	"github.com/huangsam/kpiscore/core"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD goal enforcement.
var checkCmd = &cobra.Command{
	Use:   "check [kind]",
	Short: "Check commitments against their goals (fails on violations)",
	Long: `Compare the latest complete period of each commitment with a goal against that goal.

Designed for scheduled jobs and CI/CD - exits with a non-zero code when a commitment
is below its goal. The current period is never checked since it is still accumulating.
Commitments whose source is unavailable are reported as skipped and do not fail the check.

Default goals: audit 100, training 80. Configure others under goals: in .kpiscore.yaml.

Examples:
  # Check every commitment that has a goal
  kpiscore check

  # Check the training commitment by quarter
  kpiscore check training --granularity quarter

  # Check as of the end of last year
  kpiscore check --as-of 2024-12-31`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: kindSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCheck(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Goal check failed", err)
		}
	},
}
