// SPDX-License-Identifier: MIT

// Package daemon wires the timeline components and runs them.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/timelinesink/internal/api"
	"github.com/ManuGH/timelinesink/internal/api/middleware"
	"github.com/ManuGH/timelinesink/internal/config"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/registry"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/sink"
	"github.com/ManuGH/timelinesink/internal/health"
	"github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/prefs"
	"github.com/ManuGH/timelinesink/internal/producer/catalog"
	"github.com/ManuGH/timelinesink/internal/ratelimit"
	"github.com/ManuGH/timelinesink/internal/telemetry"
	"github.com/ManuGH/timelinesink/internal/transport/ws"
)

// Runtime holds every wired component of a running daemon.
type Runtime struct {
	Config    config.AppConfig
	Logger    zerolog.Logger
	Telemetry *telemetry.Provider
	Prefs     *prefs.Store
	Registry  *registry.Registry
	Sink      *sink.DataSink
	Timeline  *ws.Server
	Health    *health.Manager
	API       *api.Server
	Manager   Manager
}

// Bootstrap builds the runtime from a validated configuration. Components
// built before a failure are released again.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (_ *Runtime, err error) {
	logger := log.WithComponent("daemon")
	rt := &Runtime{Config: cfg, Logger: logger}

	var cleanup []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			err = errors.Join(err, cleanup[i](context.WithoutCancel(ctx)))
		}
	}()

	rt.Telemetry, err = telemetry.NewProvider(ctx, cfg.Telemetry())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	cleanup = append(cleanup, rt.Telemetry.Shutdown)

	rt.Prefs, err = prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}

	rt.Registry, err = catalog.NewRegistry(catalog.Options{
		BufferSize:     cfg.Sink.ProducerBufferSize,
		MemoryInterval: cfg.Producers.MemoryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("producer catalog: %w", err)
	}

	store := rt.Prefs
	rt.Sink, err = sink.New(sink.Config{
		Registry:        rt.Registry,
		ClientQueueSize: cfg.Sink.ClientQueueSize,
		MeterProvider:   rt.Telemetry.MeterProvider(),
		DefaultSession:  store.SessionConfig,
		SessionStarted: func(sc model.SessionConfig) {
			if err := store.Remember(sc); err != nil {
				logger.Warn().Err(err).Str("event", "prefs.remember_failed").Msg("failed to persist recording preferences")
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	cleanup = append(cleanup, rt.Sink.Close)

	var limiter *ratelimit.Limiter
	if cfg.WS.Rate > 0 {
		lc := ratelimit.DefaultConfig()
		lc.PerConnRate = rate.Limit(cfg.WS.Rate)
		lc.PerConnBurst = cfg.WS.Burst
		limiter = ratelimit.New(lc)
	}
	origins := cfg.API.AllowedOrigins
	rt.Timeline, err = ws.NewServer(ws.Config{
		Hub:     rt.Sink,
		Limiter: limiter,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(origins, r.Header.Get("Origin")) || sameOrigin(r)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("timeline server: %w", err)
	}

	rt.Health = health.NewManager(cfg.Version)
	rt.Health.RegisterChecker(health.NewSinkChecker(rt.Sink))
	rt.Health.RegisterChecker(health.NewCatalogChecker(rt.Registry.Producers))
	rt.Health.RegisterChecker(health.NewFileChecker("prefs", cfg.Prefs.Path))

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = "timelinesink"
	}
	rt.API, err = api.New(api.Config{
		Sink:                    rt.Sink,
		Timeline:                rt.Timeline,
		Health:                  rt.Health,
		AllowedOrigins:          origins,
		IngestRequestsPerMinute: cfg.Ingest.RequestsPerMinute,
		TracingService:          tracingService,
	})
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	deps := Deps{
		Logger:     logger,
		APIHandler: rt.API.Handler(),
	}
	if cfg.Metrics.ListenAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	rt.Manager, err = NewManager(DefaultServerConfig(cfg.API.ListenAddr), deps)
	if err != nil {
		return nil, err
	}

	// LIFO: connections close first, then the sink stops its producers,
	// then pending spans flush.
	rt.Manager.RegisterShutdownHook("telemetry", rt.Telemetry.Shutdown)
	rt.Manager.RegisterShutdownHook("sink", rt.Sink.Close)
	rt.Manager.RegisterShutdownHook("timeline", rt.Timeline.Shutdown)

	return rt, nil
}

// sameOrigin mirrors the default gorilla check: no Origin header, or an
// Origin whose host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, scheme := range []string{"http://", "https://"} {
		if origin == scheme+r.Host {
			return true
		}
	}
	return false
}
