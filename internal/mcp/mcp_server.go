// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// queryOptions are the window arguments shared by every tool.
func queryOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("granularity", mcp.Description("Period granularity. Defaults to the configured one."), mcp.Enum("month", "quarter", "year")),
		mcp.WithString("start", mcp.Description("First period of the window (e.g., '2025-01', '2025Q1', '2025' or a date).")),
		mcp.WithString("end", mcp.Description("Last period of the window, inclusive.")),
	}
}

func newTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	return mcp.NewTool(name, append(opts, queryOptions()...)...)
}

// NewMCPServer initializes and configures the KPI MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"KPI Score Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_commitment ---
	s.AddTool(newTool("get_commitment",
		"Compute commitment percentages per period. Omit kind to get every commitment.",
		mcp.WithString("kind", mcp.Description("Commitment kind (audit, capa, capa_effectiveness, complaint, training).")),
	), h.handleGetCommitment)

	// --- 2. Tool: get_trend ---
	s.AddTool(newTool("get_trend",
		"Compute one commitment with its 3-period rolling average and linear trendline.",
		mcp.WithString("kind", mcp.Description("Commitment kind."), mcp.Required()),
	), h.handleGetTrend)

	// --- 3. Tool: get_counts ---
	s.AddTool(newTool("get_counts",
		"Count records per period, optionally broken down by a categorical column.",
		mcp.WithString("category", mcp.Description("Record category (audits, capas, complaints, training, usage)."), mcp.Required()),
		mcp.WithString("column", mcp.Description("Timestamp column to bucket by. Defaults to the category's completion column.")),
		mcp.WithString("breakdown", mcp.Description("Categorical column to break counts down by.")),
	), h.handleGetCounts)

	// --- 4. Tool: get_composite ---
	s.AddTool(newTool("get_composite",
		"Compute the weighted composite commitment score per period.",
		mcp.WithString("weights", mcp.Description("Weights override (e.g., 'audits:0.5,training:0.5'). Must sum to 1.")),
	), h.handleGetComposite)

	// --- 5. Tool: get_rates ---
	s.AddTool(newTool("get_rates",
		"Compute complaints per 100 runs and per active account for each period.",
	), h.handleGetRates)

	// --- 6. Tool: check_goals ---
	s.AddTool(newTool("check_goals",
		"Check the latest complete period of each commitment against its goal.",
		mcp.WithString("kind", mcp.Description("Check a single commitment kind.")),
	), h.handleCheckGoals)

	return s
}

// StartMCPServer starts the KPI MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
