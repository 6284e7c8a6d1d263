// Package server exposes the gateway's local diagnostics surface: health
// probes, Prometheus metrics and read-only safety state.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cangate-io/cangate/internal/pkg/metrics"
	"github.com/cangate-io/cangate/internal/safety"
	"github.com/cangate-io/cangate/pkg/log"
	"github.com/cangate-io/cangate/pkg/options"
)

// SnapshotFunc supplies the current safety snapshot. The server never
// holds a reference to the engine itself.
type SnapshotFunc func() safety.Snapshot

type Server struct {
	server *http.Server
}

func NewServer(opts *options.HttpOptions, snapshot SnapshotFunc) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Ready means the safety engine is constructed; a faulted watchdog is
	// still ready, it is just not allowing controls.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)

	r.HandleFunc("/v1/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, snapshot())
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/watchdog", func(w http.ResponseWriter, _ *http.Request) {
		snap := snapshot()
		writeJSON(w, struct {
			Fault   bool                   `json:"fault"`
			Entries []safety.WatchdogEntry `json:"entries"`
		}{Fault: snap.WatchdogFault, Entries: snap.Watchdog})
	}).Methods(http.MethodGet)

	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		},
	}
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode response")
	}
}
