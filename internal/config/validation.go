// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/telemetry"
)

// ValidationError names the offending key.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate reports every invalid value, joined.
func Validate(cfg AppConfig) error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.API.ListenAddr) == "" {
		fail("api.listenAddr", "must not be empty")
	}
	if cfg.Metrics.ListenAddr != "" && cfg.Metrics.ListenAddr == cfg.API.ListenAddr {
		fail("metrics.listenAddr", "must differ from api.listenAddr (%s)", cfg.API.ListenAddr)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		fail("logLevel", "unknown level %q", cfg.LogLevel)
	}
	if cfg.Sink.ClientQueueSize <= 0 {
		fail("sink.clientQueueSize", "must be positive, got %d", cfg.Sink.ClientQueueSize)
	}
	if cfg.Sink.ProducerBufferSize <= 0 {
		fail("sink.producerBufferSize", "must be positive, got %d", cfg.Sink.ProducerBufferSize)
	}
	if cfg.Producers.MemoryInterval <= 0 {
		fail("producers.memoryInterval", "must be positive, got %s", cfg.Producers.MemoryInterval)
	}
	if cfg.WS.Rate < 0 {
		fail("ws.rate", "must not be negative, got %g", cfg.WS.Rate)
	}
	if cfg.WS.Rate > 0 && cfg.WS.Burst <= 0 {
		fail("ws.burst", "must be positive when ws.rate is set, got %d", cfg.WS.Burst)
	}
	if cfg.Ingest.RequestsPerMinute < 0 {
		fail("ingest.requestsPerMinute", "must not be negative, got %d", cfg.Ingest.RequestsPerMinute)
	}

	if cfg.Tracing.Enabled {
		switch strings.ToLower(cfg.Tracing.Exporter) {
		case telemetry.ExporterGRPC, telemetry.ExporterHTTP:
		default:
			fail("tracing.exporter", "unsupported exporter %q (supported: grpc, http)", cfg.Tracing.Exporter)
		}
		if cfg.Tracing.Endpoint == "" {
			fail("tracing.endpoint", "must be set when tracing is enabled")
		}
	}
	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		fail("tracing.samplingRate", "must be within [0, 1], got %g", cfg.Tracing.SamplingRate)
	}

	return errors.Join(errs...)
}
