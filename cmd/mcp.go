package cmd

import (
	"github.com/huangsam/kpiscore/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the kpiscore MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents compute KPI reports via standard tools.

Tools: get_commitment, get_trend, get_counts, get_composite, get_rates, check_goals

Every tool accepts granularity, start and end to override the configured window.`,
	// Report headers are suppressed per request since stdio carries the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
