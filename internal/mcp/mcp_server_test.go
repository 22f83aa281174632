package mcp_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	mcp_internal "github.com/huangsam/kpiscore/internal/mcp"
	"github.com/huangsam/kpiscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBaseConfig(dir string) *contract.Config {
	return &contract.Config{
		Granularity:     schema.Month,
		Epoch:           time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		AsOf:            time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		SourceDir:       dir,
		SourceFormat:    schema.CSVSource,
		Weights:         schema.GetDefaultWeights(),
		CompositeOffset: schema.CompositeOffset,
		Goals:           schema.GetDefaultGoals(),
		Workers:         2,
		Precision:       1,
	}
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerTools(t *testing.T) {
	s := mcp_internal.NewMCPServer(newBaseConfig(t.TempDir()), nil)
	for _, name := range []string{"get_commitment", "get_trend", "get_counts", "get_composite", "get_rates", "check_goals"} {
		assert.NotNil(t, s.GetTool(name), name)
	}
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s := mcp_internal.NewMCPServer(newBaseConfig(t.TempDir()), nil)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantMsg string
	}{
		{"trend missing kind", "get_trend", map[string]any{}, "unknown commitment"},
		{"trend unknown kind", "get_trend", map[string]any{"kind": "uptime"}, "unknown commitment"},
		{"counts missing category", "get_counts", map[string]any{}, "unknown category"},
		{"invalid granularity", "get_commitment", map[string]any{"granularity": "week"}, "invalid granularity"},
		{"inverted window", "get_rates", map[string]any{"start": "2025-03", "end": "2025-01"}, "cannot be after end"},
		{"bad start", "check_goals", map[string]any{"start": "soon"}, "invalid start"},
		{"weights must sum to one", "get_composite", map[string]any{"weights": "audits:0.5,training:0.2"}, "must sum to 1"},
		{"weights unknown category", "get_composite", map[string]any{"weights": "usage:1"}, "unknown category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(res), tt.wantMsg)
		})
	}
}

func TestMCPServerHandlers_Results(t *testing.T) {
	dir := t.TempDir()
	training := "Due Date,Completed Date,User\n" +
		"2025-01-20,2025-01-15,ann\n" +
		"2025-01-20,2025-01-25,bob\n" +
		"2025-02-20,2025-02-10,ann\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "training.csv"), []byte(training), 0o644))

	s := mcp_internal.NewMCPServer(newBaseConfig(dir), nil)

	t.Run("commitment", func(t *testing.T) {
		res := callTool(t, s, "get_commitment", map[string]any{"kind": "training"})
		require.False(t, res.IsError, resultText(res))
		text := resultText(res)
		assert.Contains(t, text, `"kind": "training"`)
		assert.Contains(t, text, `"label": "Jan 2025"`)
		assert.Contains(t, text, `"value": 50`)
		assert.Contains(t, text, `"value": null`, "March has no training due")
	})

	t.Run("missing source is unavailable", func(t *testing.T) {
		res := callTool(t, s, "get_commitment", map[string]any{"kind": "audit"})
		require.False(t, res.IsError, resultText(res))
		assert.Contains(t, resultText(res), `"available": false`)
	})

	t.Run("counts with breakdown", func(t *testing.T) {
		res := callTool(t, s, "get_counts", map[string]any{"category": "training", "breakdown": "User"})
		require.False(t, res.IsError, resultText(res))
		assert.Contains(t, resultText(res), `"ann"`)
	})

	t.Run("goal check", func(t *testing.T) {
		res := callTool(t, s, "check_goals", map[string]any{"kind": "training"})
		require.False(t, res.IsError, resultText(res))
		text := resultText(res)
		assert.Contains(t, text, `"kind": "training"`)
		assert.Contains(t, text, `"passed": true`, "February met the training goal")
	})

	t.Run("composite with missing sources", func(t *testing.T) {
		res := callTool(t, s, "get_composite", map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "could not be retrieved")
	})
}
