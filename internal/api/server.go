// Package api provides the HTTP read surface over persisted deliberations:
// debate listings, chunk-level artifact reads and health checks.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/consilium/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/consilium/internal/index"
	"github.com/hugo-lorenzo-mato/consilium/internal/logging"
	"github.com/hugo-lorenzo-mato/consilium/internal/store"
)

// Server serves the read API.
type Server struct {
	router  chi.Router
	store   *store.DebateStore
	index   *index.DebateIndex
	monitor *diagnostics.ResourceMonitor
	logger  *logging.Logger
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithIndex attaches the debate index for listings.
func WithIndex(idx *index.DebateIndex) ServerOption {
	return func(s *Server) { s.index = idx }
}

// WithResourceMonitor attaches the monitor for deep health checks.
func WithResourceMonitor(monitor *diagnostics.ResourceMonitor) ServerOption {
	return func(s *Server) { s.monitor = monitor }
}

// NewServer creates the API server.
func NewServer(debateStore *store.DebateStore, allowedOrigins []string, opts ...ServerOption) *Server {
	s := &Server{
		store:  debateStore,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler)

	r.Get("/healthz", s.handleHealth)
	r.Get("/healthz/deep", s.handleDeepHealth)
	r.Route("/api/debates", func(r chi.Router) {
		r.Get("/", s.handleListDebates)
		r.Get("/{taskID}", s.handleGetDebate)
		r.Get("/{taskID}/artifact", s.handleGetArtifact)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeepHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if s.monitor != nil {
		resp["resources"] = s.monitor.Snapshot(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
