package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/kpiscore/internal/api"
	"github.com/spf13/cobra"
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kpiscore HTTP API",
	Long: `Serve the KPI reports as JSON over HTTP until interrupted.

Routes:
  GET /healthz
  GET /metrics                      - Prometheus metrics
  GET /api/v1/commitment[/{kind}]
  GET /api/v1/trend/{kind}
  GET /api/v1/counts/{category}     - column and breakdown query parameters
  GET /api/v1/composite             - weights query parameter
  GET /api/v1/rates
  GET /api/v1/check                 - kind query parameter

Every report route accepts granularity, start and end query parameters.

Examples:
  # Serve on the default address
  kpiscore serve

  # Serve on another port with quarterly defaults
  kpiscore serve --addr :9090 --granularity quarter`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return api.ListenAndServe(ctx, cfg.ServeAddr, cfg, cacheManager)
	},
}
