package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/kpiscore/core"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// queryConfig clones the base config and applies the window arguments of a request.
func (h *toolHandler) queryConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	err := contract.RevalidateQuery(cfg,
		request.GetString("granularity", ""),
		request.GetString("start", ""),
		request.GetString("end", ""),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid query parameters: %w", err)
	}
	return cfg, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetCommitment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if k := request.GetString("kind", ""); k != "" {
		if cfg.Kind, err = contract.ParseCommitmentKind(k); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	reports, err := core.GetCommitmentResults(core.WithSuppressHeader(ctx), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("commitment failed: %v", err)), nil
	}
	return jsonResult(reports)
}

func (h *toolHandler) handleGetTrend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cfg.Kind, err = contract.ParseCommitmentKind(request.GetString("kind", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := core.GetTrendResults(core.WithSuppressHeader(ctx), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trend failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetCounts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cfg.Category, err = contract.ParseCategory(request.GetString("category", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.Column = request.GetString("column", "")
	cfg.Breakdown = request.GetString("breakdown", "")

	report, err := core.GetCountResults(core.WithSuppressHeader(ctx), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("counts failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetComposite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if w := request.GetString("weights", ""); w != "" {
		parsed, err := contract.ParseWeightsString(w)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid weights: %v", err)), nil
		}
		if cfg.Weights, err = contract.ProcessWeights(parsed); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid weights: %v", err)), nil
		}
	}

	report, err := core.GetCompositeResults(core.WithSuppressHeader(ctx), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("composite failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetRates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := core.GetRateResults(core.WithSuppressHeader(ctx), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rates failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleCheckGoals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.queryConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if k := request.GetString("kind", ""); k != "" {
		if cfg.Kind, err = contract.ParseCommitmentKind(k); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := core.GetCheckResults(core.WithSuppressHeader(ctx), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("goal check failed: %v", err)), nil
	}
	return jsonResult(result)
}
