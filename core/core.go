// Package core has core logic for loading KPI sources, computing reports and recording runs.
package core

import (
	"context"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/outwriter"
)

// ExecutorFunc defines the function signature for executing the report commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteCommitment computes commitment series and prints them.
func ExecuteCommitment(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	reports, err := GetCommitmentResults(ctx, cfg, NewSourceLoader(cfg), mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintCommitmentResults(reports, cfg, time.Since(start))
}

// ExecuteTrend computes one commitment with its rolling average and trendline,
// records it when run history is enabled, and prints it.
func ExecuteTrend(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	report, err := GetTrendResults(ctx, cfg, NewSourceLoader(cfg), mgr)
	if err != nil {
		return err
	}
	if report.Available {
		recordRun(mgr, "trend", cfg, start, report.Commitment)
	}
	return outwriter.PrintTrendResults(report, cfg, time.Since(start))
}

// ExecuteCounts computes per-period record counts and prints them.
func ExecuteCounts(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	report, err := GetCountResults(ctx, cfg, NewSourceLoader(cfg), mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintCountResults(report, cfg, time.Since(start))
}

// ExecuteComposite computes the weighted composite score, records it when run
// history is enabled, and prints it.
func ExecuteComposite(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	report, err := GetCompositeResults(ctx, cfg, NewSourceLoader(cfg), mgr)
	if err != nil {
		return err
	}
	recordRun(mgr, "composite", cfg, start, report.Score)
	return outwriter.PrintCompositeResults(report, cfg, time.Since(start))
}

// ExecuteRates computes complaint rates per usage and prints them.
func ExecuteRates(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	report, err := GetRateResults(ctx, cfg, NewSourceLoader(cfg), mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintRateResults(report, cfg, time.Since(start))
}
