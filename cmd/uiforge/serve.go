package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/uiforge/internal/canvasapi"
	"github.com/vango-dev/uiforge/internal/canvasfeed"
	"github.com/vango-dev/uiforge/internal/scaffold"
	"github.com/vango-dev/uiforge/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scaffold helper and canvas services",
		Long: `Run the HTTP services the authoring canvas talks to:

  /generate, /delete, /write, /exists/{id}, /health   scaffold helper
  /api/...                                            promote, compose and delete
  /ws                                                 canvas event feed
  /metrics                                            Prometheus metrics

Examples:
  uiforge serve
  uiforge serve --addr=0.0.0.0:4202`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runServe(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from uiforge.json)")

	return cmd
}

func runServe(ctx context.Context, addr string) error {
	metrics := telemetry.Default()
	hub := canvasfeed.NewHub(
		canvasfeed.WithMetrics(metrics),
		canvasfeed.WithLogger(newLogger(os.Stderr).With("component", "canvasfeed")),
	)

	e, err := openEnv(ctx, envOptions{metrics: metrics, notifier: hub})
	if err != nil {
		return err
	}
	defer e.close(context.Background())
	if addr == "" {
		addr = e.cfg.Server.Address
	}

	r := chi.NewRouter()
	r.Get("/ws", hub.HandleWebSocket)
	if e.cfg.Server.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Mount("/api", canvasapi.New(e.workflow, e.catalog, e.logger.With("component", "canvasapi")).Handler())
	// Served requests always generate in-process.
	scaffold.NewServer(e.local, e.logger.With("component", "scaffold")).Mount(r, "/")

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	success("Serving on http://%s", addr)
	info("canvas feed: ws://%s/ws", addr)
	if e.cfg.Server.Metrics {
		info("metrics:     http://%s/metrics", addr)
	}

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\n  Shutting down...")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
