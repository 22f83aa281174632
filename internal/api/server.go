// Package api serves the KPI reports as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// shutdownTimeout bounds how long in-flight requests may run after the context ends.
const shutdownTimeout = 10 * time.Second

// NewRouter creates a router with all routes configured.
// Each request computes its report from a clone of baseCfg.
func NewRouter(baseCfg *contract.Config, mgr contract.CacheManager) http.Handler {
	m := newMetrics()
	h := &Handler{baseCfg: baseCfg, mgr: mgr, metrics: m}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(m.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/commitment", h.GetCommitment)
		r.Get("/commitment/{kind}", h.GetCommitment)
		r.Get("/trend/{kind}", h.GetTrend)
		r.Get("/counts/{category}", h.GetCounts)
		r.Get("/composite", h.GetComposite)
		r.Get("/rates", h.GetRates)
		r.Get("/check", h.GetCheck)
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, baseCfg *contract.Config, mgr contract.CacheManager) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(baseCfg, mgr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("KPI API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down KPI API")
		return srv.Shutdown(shutdownCtx)
	}
}
