package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

var (
	// ErrCheckFailed is returned by ExecuteCheck when a commitment is below its goal.
	ErrCheckFailed = errors.New("goal check failed")
	// ErrNoGoal is returned when a single commitment is checked but has no goal.
	ErrNoGoal = errors.New("no goal configured")
)

// GetCheckResults compares the latest complete period of every commitment that has a
// goal, or of cfg.Kind only, against that goal. The current period is never checked
// since it is still accumulating. Unavailable sources and commitments without a
// complete period are reported but never fail the check.
func GetCheckResults(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager) (schema.CheckResult, error) {
	result := schema.CheckResult{Granularity: cfg.Granularity, AsOf: cfg.AsOf, Passed: true}

	kinds := slices.Sorted(maps.Keys(cfg.Goals))
	if cfg.Kind != "" {
		if _, ok := cfg.Goals[cfg.Kind]; !ok {
			return result, fmt.Errorf("%w for %s commitment", ErrNoGoal, cfg.Kind)
		}
		kinds = []schema.CommitmentKind{cfg.Kind}
	}
	if len(kinds) == 0 {
		return result, nil
	}

	reports, err := commitmentReports(ctx, cfg, loader, mgr, kinds)
	if err != nil {
		return result, err
	}

	current := cfg.Query().Current()
	for _, r := range reports {
		check := schema.GoalCheck{Kind: r.Kind, Goal: cfg.Goals[r.Kind]}
		if !r.Available {
			check.Reason = r.Reason
			result.Checks = append(result.Checks, check)
			continue
		}

		period, value, ok := latestComplete(r.Commitment, current)
		if !ok {
			check.Reason = "no complete " + string(cfg.Granularity) + " with data in the window"
			result.Checks = append(result.Checks, check)
			continue
		}
		check.Available = true
		check.Period = period
		check.Value = value
		check.Passed = value >= check.Goal
		result.Passed = result.Passed && check.Passed
		result.Checks = append(result.Checks, check)
	}
	return result, nil
}

// latestComplete returns the last non-NaN cell of s before current.
func latestComplete(s schema.Series, current schema.Period) (schema.Period, float64, bool) {
	for i := s.Len() - 1; i >= 0; i-- {
		p := s.Start.Add(i)
		if !p.Before(current) || math.IsNaN(s.Values[i]) {
			continue
		}
		return p, s.Values[i], true
	}
	return schema.Period{}, 0, false
}

// ExecuteCheck runs the check command for CI/CD gating.
// It returns ErrCheckFailed when any commitment is below its goal.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()

	result, err := GetCheckResults(WithSuppressHeader(ctx), cfg, NewSourceLoader(cfg), mgr)
	if err != nil {
		return err
	}

	printCheckResult(os.Stdout, result, cfg.Precision, time.Since(start))
	if !result.Passed {
		return fmt.Errorf("%w: %d commitment(s) below goal", ErrCheckFailed, len(result.Failed()))
	}
	return nil
}

// printCheckResult prints the check result in a concise format suitable for CI/CD.
func printCheckResult(w io.Writer, result schema.CheckResult, precision int, duration time.Duration) {
	_, _ = fmt.Fprintln(w, "Goal Check Results:")
	_, _ = fmt.Fprintf(w, "  Granularity: %s\n", result.Granularity)
	_, _ = fmt.Fprintf(w, "  As of:       %s\n\n", result.AsOf.Format("2006-01-02"))
	_, _ = fmt.Fprintf(w, "Checked %d commitment(s) in %v\n\n", len(result.Checks), duration)

	if len(result.Checks) == 0 {
		_, _ = fmt.Fprintln(w, "No commitment has a goal configured")
		return
	}
	if result.Passed {
		_, _ = fmt.Fprintf(w, "✅ All commitments met their goals\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "❌ Goal check failed: %d commitment(s) below goal\n\n", len(result.Failed()))
	}

	for _, c := range result.Checks {
		if !c.Available {
			_, _ = fmt.Fprintf(w, "  - %s: skipped (%s)\n", c.Kind, c.Reason)
			continue
		}
		mark := "✅"
		if !c.Passed {
			mark = "❌"
		}
		_, _ = fmt.Fprintf(w, "  %s %s: %s%% in %s (goal: %s%%)\n", mark, c.Kind,
			contract.FormatValue(c.Value, precision), c.Period.Label(), contract.FormatValue(c.Goal, precision))
	}
}
