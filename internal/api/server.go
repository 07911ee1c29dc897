// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the daemon over HTTP: the timeline WebSocket, the
// agent ingestion endpoint, status and health checks.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/timelinesink/internal/api/middleware"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/health"
)

const defaultMaxIngestBytes = 1 << 20

// Sink is the part of the data sink the HTTP surface reads and feeds.
type Sink interface {
	Snapshot() model.Snapshot
	Ingest(producer model.ProducerID, events []model.Event) (accepted int, ok bool)
}

type Config struct {
	Sink Sink
	// Timeline serves GET /v1/timeline, normally a *ws.Server.
	Timeline http.Handler
	Health   *health.Manager

	AllowedOrigins          []string
	IngestRequestsPerMinute int
	MaxIngestBytes          int64
	// TracingService names HTTP spans; empty disables HTTP tracing.
	TracingService string
}

// Server owns the router.
type Server struct {
	cfg    Config
	router chi.Router
}

func New(cfg Config) (*Server, error) {
	if cfg.Sink == nil {
		return nil, errors.New("api: sink is required")
	}
	if cfg.Timeline == nil {
		return nil, errors.New("api: timeline handler is required")
	}
	if cfg.Health == nil {
		cfg.Health = health.NewManager("")
	}
	if cfg.MaxIngestBytes <= 0 {
		cfg.MaxIngestBytes = defaultMaxIngestBytes
	}

	s := &Server{cfg: cfg}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:     true,
		AllowedOrigins: s.cfg.AllowedOrigins,
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.cfg.Health.ServeHealth)
	r.Get("/readyz", s.cfg.Health.ServeReady)

	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodGet, "/timeline", s.cfg.Timeline)
		r.Get("/status", s.handleStatus)
		r.With(middleware.IngestRateLimit(s.cfg.IngestRequestsPerMinute)).
			Post("/ingest/{producerId}", s.handleIngest)
	})
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Sink.Snapshot())
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, detail string) {
	writeJSON(w, code, errorBody{Error: kind, Detail: detail})
}
