package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conductor/internal/config"
	"conductor/internal/metrics"
	"conductor/internal/workspace"
	"conductor/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// runServeMode runs conductor as a long-lived process.
//
// Behavior:
//   - Serves Prometheus metrics on metrics.addr when configured
//   - Watches the workspace directory when workspaces.watch is set, so edited
//     workspace files take effect for the next restart
//   - Blocks until ctx is cancelled or SIGINT/SIGTERM arrives
func runServeMode(ctx context.Context, conf *config.Config, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	var server *http.Server
	if conf.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(services.Registry))
		server = &http.Server{Addr: conf.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logging.Info("Serve", "Serving metrics on %s/metrics", conf.Metrics.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	if conf.Workspaces.Watch {
		go func() {
			err := services.Specs.Watch(ctx, workspace.DefaultDebounceInterval, func(ev workspace.ChangeEvent) {
				logging.Info("Serve", "Workspace %s changed (%s)", ev.Name, ev.Operation)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	logging.Info("Serve", "Conductor running. Press Ctrl+C to exit.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logging.Error("Serve", runErr, "Background service failed")
	}

	logging.Info("Serve", "Shutting down")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Serve", "Metrics server shutdown: %v", err)
		}
	}
	return runErr
}
