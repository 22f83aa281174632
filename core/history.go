package core

import (
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
)

// recordRun stores a finished run and its series in the history store, if one is configured.
// Failures are logged and never fail the run.
func recordRun(mgr contract.CacheManager, command string, cfg *contract.Config, start time.Time, series ...schema.Series) {
	store := historyStore(mgr)
	if store == nil {
		return
	}

	configParams := map[string]any{
		"granularity":      string(cfg.Granularity),
		"epoch":            cfg.Epoch.Format(contract.DateTimeFormat),
		"start":            cfg.From.String(),
		"end":              cfg.To.String(),
		"filters":          cfg.Filters,
		"weights":          cfg.Weights,
		"composite_offset": cfg.CompositeOffset,
		"kind":             string(cfg.Kind),
	}
	runID, err := store.BeginRun(start, command, cfg.Query(), configParams)
	if err != nil {
		contract.LogWarn("Run history initialization failed", err)
		return
	}
	if runID == 0 {
		return // history disabled
	}

	if err := store.RecordValues(runID, schema.HistoryValues(runID, start, series...)); err != nil {
		contract.LogWarn("Failed to record run values", err)
	}
	if err := store.EndRun(runID, time.Now()); err != nil {
		contract.LogWarn("Failed to finalize run history", err)
	}
	log.Debug().Int64("run_id", runID).Str("command", command).Msg("recorded run")
}
