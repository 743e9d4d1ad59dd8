// Package httpserver provides the HTTP REST API of the metasearch service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/federation"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/papersources"
)

// Index is the search backend used by the API. Every search.Adapter satisfies it.
type Index interface {
	Name() string
	Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResponse, error)
	Ping(ctx context.Context) error
}

// Resolver resolves paper details and runs live searches. *federation.Service
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*domain.PaperResponse, error)
	FederatedSearch(ctx context.Context, req federation.SearchRequest) (*federation.SearchResult, error)
}

// SourceLister lists the enabled connectors.
type SourceLister interface {
	Enabled() []papersources.Connector
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// CORSOrigins lists allowed origins. "*" allows any; empty disables CORS headers.
	CORSOrigins []string
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	index      Index
	resolver   Resolver
	sources    SourceLister
	cors       []string
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewServer creates the server. metrics may be nil.
func NewServer(cfg Config, index Index, resolver Resolver, sources SourceLister, logger zerolog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		index:    index,
		resolver: resolver,
		sources:  sources,
		cors:     cfg.CORSOrigins,
		logger:   observability.WithComponent(logger, "http-server"),
		metrics:  metrics,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.accessLogMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.searchPost)
		r.Get("/search", s.searchGet)
		r.Get("/paper/{id}", s.getPaper)
		r.Post("/export", s.exportRecords)
		r.Post("/federated", s.federatedSearch)
		r.Get("/sources", s.listSources)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler pings the search backend.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Ping(r.Context()); err != nil {
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"backend": s.index.Name(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"backend": s.index.Name(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
