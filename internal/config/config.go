// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/timelinesink/internal/telemetry"
)

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	Version  string `yaml:"-"`
	LogLevel string `yaml:"logLevel"`

	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Sink      SinkConfig      `yaml:"sink"`
	Producers ProducersConfig `yaml:"producers"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	WS        WSConfig        `yaml:"ws"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// AllowedOrigins may call the API from a browser and open timeline
	// connections. "*" allows every origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type MetricsConfig struct {
	// ListenAddr of the metrics server. Empty disables it.
	ListenAddr string `yaml:"listenAddr"`
}

type SinkConfig struct {
	ClientQueueSize    int `yaml:"clientQueueSize"`
	ProducerBufferSize int `yaml:"producerBufferSize"`
}

type ProducersConfig struct {
	MemoryInterval time.Duration `yaml:"memoryInterval"`
}

type PrefsConfig struct {
	// Path of the preferences file. Empty keeps preferences in memory.
	Path string `yaml:"path"`
}

// WSConfig bounds requests per second on a single connection.
type WSConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

type IngestConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:  "info",
		API:       APIConfig{ListenAddr: ":8090"},
		Metrics:   MetricsConfig{ListenAddr: ":9090"},
		Sink:      SinkConfig{ClientQueueSize: 256, ProducerBufferSize: 128},
		Producers: ProducersConfig{MemoryInterval: time.Second},
		WS:        WSConfig{Rate: 50, Burst: 100},
		Ingest:    IngestConfig{RequestsPerMinute: 6000},
		Tracing: TracingConfig{
			Exporter:     telemetry.ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Telemetry maps the tracing section onto the telemetry provider config.
func (c AppConfig) Telemetry() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Tracing.Enabled,
		ServiceName:    "timelinesink",
		ServiceVersion: c.Version,
		ExporterType:   c.Tracing.Exporter,
		Endpoint:       c.Tracing.Endpoint,
		SamplingRate:   c.Tracing.SamplingRate,
	}
}
