package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"focusd/internal/health"
	"focusd/internal/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer exposes the Prometheus registry and the health endpoints
// over HTTP.
type metricsServer struct {
	srv    *http.Server
	logger *slog.Logger
}

func newMetricsServer(addr string, reg *metrics.Registry, checker *health.Checker, logger *slog.Logger) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.HTTPHandler())
	if checker != nil {
		checker.Routes(mux)
	}

	return &metricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// serve runs until ctx is done, then shuts the server down.
func (m *metricsServer) serve(ctx context.Context) {
	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("starting metrics server", "addr", m.srv.Addr)
		errCh <- m.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server failed", "error", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := m.srv.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("error shutting down metrics server", "error", err)
	}
}
