// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ws carries the sink actor protocol over WebSocket: one actor per
// connection, JSON requests in, JSON packets out.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/actor"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
	"github.com/ManuGH/timelinesink/internal/ratelimit"
)

const (
	defaultWriteQueue = 256
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultMaxMessage = 64 << 10
	closeGracePeriod  = time.Second
)

type Config struct {
	Hub actor.Hub

	// Limiter throttles requests; nil disables throttling.
	Limiter *ratelimit.Limiter

	WriteQueueSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	// PingPeriod must be shorter than PongWait. Zero derives it from PongWait.
	PingPeriod     time.Duration
	MaxMessageSize int64

	// CheckOrigin overrides the same-origin check of the upgrader.
	CheckOrigin func(r *http.Request) bool
	Logger      *zerolog.Logger
}

// Server upgrades requests and runs one connection per upgrade.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closing bool
	conns   map[*conn]struct{}
	wg      sync.WaitGroup
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Hub == nil {
		return nil, fmt.Errorf("ws: hub is required")
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = defaultWriteQueue
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessage
	}

	logger := xglog.WithComponent("ws")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str(xglog.FieldComponent, "ws").Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*conn]struct{}),
	}, nil
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		metrics.IncConnection("rejected")
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.IncConnection("upgrade_failed")
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	metrics.IncConnection("ok")

	id := uuid.NewString()
	logger := s.logger.With().
		Str(xglog.FieldConnID, id).
		Str("remote", ratelimit.GetClientIP(r)).
		Logger()

	c := newConn(id, wsConn, s.cfg, logger)
	c.actor = actor.New(actor.Config{Hub: s.cfg.Hub, Sender: c, ConnID: id, Logger: &logger})

	if !s.track(c) {
		c.close()
		_ = wsConn.Close()
		return
	}
	defer s.untrack(c)

	ctx := xglog.ContextWithConnID(s.ctx, id)
	c.serve(ctx, s.cfg.Limiter)
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	metrics.ConnectionsActive.Set(float64(len(s.conns)))
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	metrics.ConnectionsActive.Set(float64(len(s.conns)))
}

// Active returns the number of open connections.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown closes every connection and waits for their handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return errors.Join(fmt.Errorf("ws shutdown: %d connections still open", s.Active()), ctx.Err())
	}
}
