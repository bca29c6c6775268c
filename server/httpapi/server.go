package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cadabra-cache/cadabra/pkg/store"
)

// MetricsHandler is satisfied by server/metrics.Registry; kept as an
// interface here so httpapi does not import metrics just to wire its
// /metrics route.
type MetricsHandler interface {
	metricsSink
	Handler() http.Handler
}

// Server is the HTTP REST API server (§6 collaborator, not core).
type Server struct {
	addr       string
	httpServer *http.Server
}

// NewServer builds a Server bound to cache and, if metrics is
// non-nil, exposing GET /metrics alongside the façade routes.
func NewServer(addr string, corsEnabled bool, cache *store.Store, metrics MetricsHandler) *Server {
	h := NewHandler(cache, metrics)
	mux := h.Mux()
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	handler := RequestIDMiddleware(RecoveryMiddleware(CORSMiddleware(corsEnabled)(LoggingMiddleware(mux))))

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start starts the HTTP API server (blocking).
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
