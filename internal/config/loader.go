// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Environment keys, highest precedence.
const (
	EnvListen          = "TIMELINE_LISTEN"
	EnvAllowedOrigins  = "TIMELINE_ALLOWED_ORIGINS"
	EnvMetricsListen   = "TIMELINE_METRICS_LISTEN"
	EnvLogLevel        = "TIMELINE_LOG_LEVEL"
	EnvClientQueue     = "TIMELINE_CLIENT_QUEUE"
	EnvProducerBuffer  = "TIMELINE_PRODUCER_BUFFER"
	EnvMemoryInterval  = "TIMELINE_MEMORY_INTERVAL"
	EnvPrefsPath       = "TIMELINE_PREFS_PATH"
	EnvWSRate          = "TIMELINE_WS_RATE"
	EnvWSBurst         = "TIMELINE_WS_BURST"
	EnvIngestLimit     = "TIMELINE_INGEST_LIMIT"
	EnvTracingEnabled  = "TIMELINE_TRACING_ENABLED"
	EnvTracingExporter = "TIMELINE_TRACING_EXPORTER"
	EnvTracingEndpoint = "TIMELINE_TRACING_ENDPOINT"
	EnvTracingSampling = "TIMELINE_TRACING_SAMPLING"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string

	// ConsumedEnvKeys records every environment key the loader consulted.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load resolves the configuration: defaults, then the strict YAML file,
// then environment overrides, then Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnvKeys returns the consulted environment keys in sorted order.
func (l *Loader) EnvKeys() []string {
	keys := make([]string, 0, len(l.ConsumedEnvKeys))
	for k := range l.ConsumedEnvKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// loadFile decodes path over cfg. Keys missing from the file keep their
// current value; unknown keys are rejected.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if isUnknownFieldError(err) {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	return nil
}

func isUnknownFieldError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "field") && strings.Contains(msg, "not found")
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.API.ListenAddr = l.envString(EnvListen, cfg.API.ListenAddr)
	if origins := l.envString(EnvAllowedOrigins, ""); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}
	cfg.Metrics.ListenAddr = l.envString(EnvMetricsListen, cfg.Metrics.ListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Sink.ClientQueueSize = l.envInt(EnvClientQueue, cfg.Sink.ClientQueueSize)
	cfg.Sink.ProducerBufferSize = l.envInt(EnvProducerBuffer, cfg.Sink.ProducerBufferSize)
	cfg.Producers.MemoryInterval = ParseDuration(l.consume(EnvMemoryInterval), cfg.Producers.MemoryInterval)
	cfg.Prefs.Path = l.envString(EnvPrefsPath, cfg.Prefs.Path)

	cfg.WS.Rate = ParseFloat(l.consume(EnvWSRate), cfg.WS.Rate)
	cfg.WS.Burst = l.envInt(EnvWSBurst, cfg.WS.Burst)
	cfg.Ingest.RequestsPerMinute = l.envInt(EnvIngestLimit, cfg.Ingest.RequestsPerMinute)

	cfg.Tracing.Enabled = ParseBool(l.consume(EnvTracingEnabled), cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = ParseFloat(l.consume(EnvTracingSampling), cfg.Tracing.SamplingRate)
}

// splitList parses a comma separated list, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (l *Loader) consume(key string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) envString(key, defaultVal string) string {
	return ParseString(l.consume(key), defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	return ParseInt(l.consume(key), defaultVal)
}
