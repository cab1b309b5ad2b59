// Package http exposes the enrichment pipeline over HTTP alongside the
// health, readiness and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/Moutron/home-maintenance-app-sub001/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request bodies larger than this are rejected.
const maxRequestBytes = 1 << 20

// Enricher is the pipeline surface the server needs. *pipeline.Pipeline implements it.
type Enricher interface {
	sharedobs.ReadinessChecker
	Enrich(ctx context.Context, addr domain.Address) domain.PropertyProfile
	CacheStats(ctx context.Context) (pipeline.CacheStats, error)
	SweepCaches(ctx context.Context) (pipeline.SweepResult, error)
}

// Server exposes health, readiness, metrics and enrichment endpoints.
type Server struct {
	httpServer *http.Server
	enricher   Enricher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 enrichment and cache administration routes.
func NewServer(addr string, enricher Enricher, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		enricher: enricher,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(enricher))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/enrich", s.handleEnrich)
	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /v1/cache/sweep", s.handleCacheSweep)
	mux.HandleFunc("POST /v1/inventory", s.handleInventory)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleEnrich always answers 200 for a well-formed address: provider
// failures surface as an empty profile, never as an error status.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var addr domain.Address
	if err := decodeBody(w, r, &addr); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := addr.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.enricher.Enrich(r.Context(), addr))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.enricher.CacheStats(r.Context())
	if err != nil {
		s.logger.Error("cache stats failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheSweep(w http.ResponseWriter, r *http.Request) {
	removed, err := s.enricher.SweepCaches(r.Context())
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.logger.Info("cache sweep requested", "profile", removed.Profile, "weather", removed.Weather)
	sharedobs.WriteJSON(w, http.StatusOK, removed)
}

type inventoryRequest struct {
	Profile   domain.PropertyProfile `json:"profile"`
	YearBuilt *int                   `json:"yearBuilt"`
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.SeedInventory(req.Profile, req.YearBuilt))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
