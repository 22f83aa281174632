package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/huangsam/kpiscore/core"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
)

// Handler serves the report endpoints.
type Handler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	metrics *metrics
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error      string            `json:"error"`
	Categories []schema.Category `json:"categories,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeComputeError maps a pipeline error to a response status.
func (h *Handler) writeComputeError(w http.ResponseWriter, err error) {
	var unavailable *schema.CategoriesUnavailableError
	switch {
	case errors.As(err, &unavailable):
		for _, c := range unavailable.Categories {
			h.metrics.setAvailable(c, false)
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Categories: unavailable.Categories})
	case errors.Is(err, schema.ErrUnknownCategory),
		errors.Is(err, schema.ErrUnknownCommitment),
		errors.Is(err, schema.ErrMissingColumn),
		errors.Is(err, schema.ErrInvalidWindow),
		errors.Is(err, core.ErrNoGoal):
		writeError(w, http.StatusBadRequest, err)
	default:
		log.Error().Err(err).Msg("Report computation failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

// queryConfig clones the base config and applies the window query parameters.
func (h *Handler) queryConfig(r *http.Request) (*contract.Config, error) {
	q := r.URL.Query()
	cfg := h.baseCfg.Clone()
	if err := contract.RevalidateQuery(cfg, q.Get("granularity"), q.Get("start"), q.Get("end")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetCommitment returns every commitment, or the one named by the kind path parameter.
func (h *Handler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.queryConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if k := chi.URLParam(r, "kind"); k != "" {
		if cfg.Kind, err = contract.ParseCommitmentKind(k); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	reports, err := core.GetCommitmentResults(core.WithSuppressHeader(r.Context()), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	for _, report := range reports {
		h.metrics.setAvailable(report.Category, report.Available)
	}
	writeJSON(w, http.StatusOK, reports)
}

// GetTrend returns one commitment with its rolling average and trendline.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.queryConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if cfg.Kind, err = contract.ParseCommitmentKind(chi.URLParam(r, "kind")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := core.GetTrendResults(core.WithSuppressHeader(r.Context()), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.metrics.setAvailable(report.Category, report.Available)
	writeJSON(w, http.StatusOK, report)
}

// GetCounts returns per-period record counts of a category.
// The column and breakdown query parameters select the timestamp and categorical columns.
func (h *Handler) GetCounts(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.queryConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if cfg.Category, err = contract.ParseCategory(chi.URLParam(r, "category")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg.Column = r.URL.Query().Get("column")
	cfg.Breakdown = r.URL.Query().Get("breakdown")

	report, err := core.GetCountResults(core.WithSuppressHeader(r.Context()), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.metrics.setAvailable(report.Category, report.Available)
	writeJSON(w, http.StatusOK, report)
}

// GetComposite returns the weighted composite score.
// The weights query parameter overrides the configured weights.
func (h *Handler) GetComposite(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.queryConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s := r.URL.Query().Get("weights"); s != "" {
		parsed, err := contract.ParseWeightsString(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if cfg.Weights, err = contract.ProcessWeights(parsed); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	report, err := core.GetCompositeResults(core.WithSuppressHeader(r.Context()), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	for c := range report.Weights {
		h.metrics.setAvailable(c, true)
	}
	writeJSON(w, http.StatusOK, report)
}

// GetRates returns complaint rates per usage.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.queryConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := core.GetRateResults(core.WithSuppressHeader(r.Context()), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetCheck returns the goal check of every commitment with a goal, or of the kind query parameter.
// A failed check is still a successful request; the body carries the outcome.
func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.queryConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if k := r.URL.Query().Get("kind"); k != "" {
		if cfg.Kind, err = contract.ParseCommitmentKind(k); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	result, err := core.GetCheckResults(core.WithSuppressHeader(r.Context()), cfg, core.NewSourceLoader(cfg), h.mgr)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
