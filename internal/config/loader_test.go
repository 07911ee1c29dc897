// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader("", "test").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Defaults()
	want.Version = "test"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join("testdata", "valid.yaml"), "test").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.API.ListenAddr != "127.0.0.1:18090" {
		t.Errorf("API.ListenAddr = %q", cfg.API.ListenAddr)
	}
	if cfg.Sink.ClientQueueSize != 64 {
		t.Errorf("Sink.ClientQueueSize = %d, want 64", cfg.Sink.ClientQueueSize)
	}
	// Not in the file: default survives.
	if cfg.Sink.ProducerBufferSize != 128 {
		t.Errorf("Sink.ProducerBufferSize = %d, want default 128", cfg.Sink.ProducerBufferSize)
	}
	if cfg.Producers.MemoryInterval != 250*time.Millisecond {
		t.Errorf("Producers.MemoryInterval = %v, want 250ms", cfg.Producers.MemoryInterval)
	}
	if cfg.Metrics.ListenAddr != ":9090" {
		t.Errorf("Metrics.ListenAddr = %q, want default", cfg.Metrics.ListenAddr)
	}

	tc := cfg.Telemetry()
	if !tc.Enabled || tc.ExporterType != "http" || tc.Endpoint != "collector:4318" || tc.SamplingRate != 0.25 {
		t.Errorf("Telemetry() = %+v", tc)
	}
	if tc.ServiceVersion != "test" {
		t.Errorf("Telemetry().ServiceVersion = %q, want test", tc.ServiceVersion)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvListen, ":7000")
	t.Setenv(EnvClientQueue, "16")
	t.Setenv(EnvMemoryInterval, "2s")
	t.Setenv(EnvTracingEnabled, "false")
	t.Setenv(EnvWSRate, "0")
	t.Setenv(EnvAllowedOrigins, " https://a.example, ,https://b.example")

	loader := NewLoader(filepath.Join("testdata", "valid.yaml"), "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.ListenAddr != ":7000" {
		t.Errorf("API.ListenAddr = %q, want :7000", cfg.API.ListenAddr)
	}
	if cfg.Sink.ClientQueueSize != 16 {
		t.Errorf("Sink.ClientQueueSize = %d, want 16", cfg.Sink.ClientQueueSize)
	}
	if cfg.Producers.MemoryInterval != 2*time.Second {
		t.Errorf("Producers.MemoryInterval = %v, want 2s", cfg.Producers.MemoryInterval)
	}
	if cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled = true, want env override false")
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins); diff != "" {
		t.Errorf("API.AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
	if cfg.WS.Rate != 0 {
		t.Errorf("WS.Rate = %g, want 0", cfg.WS.Rate)
	}

	if _, ok := loader.ConsumedEnvKeys[EnvTracingSampling]; !ok {
		t.Errorf("expected %s to be consumed", EnvTracingSampling)
	}
	if got := len(loader.EnvKeys()); got != 15 {
		t.Errorf("EnvKeys() len = %d, want 15", got)
	}
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	_, err := NewLoader(filepath.Join("testdata", "invalid-unknown-key.yaml"), "test").Load()
	if err == nil {
		t.Fatal("expected error due to unknown key, got nil")
	}
	if !errors.Is(err, ErrUnknownConfigField) {
		t.Fatalf("expected ErrUnknownConfigField, got: %v", err)
	}
}

func TestLoad_InvalidValuesReportEveryField(t *testing.T) {
	_, err := NewLoader(filepath.Join("testdata", "invalid-values.yaml"), "test").Load()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		if errors.As(e, &ve) {
			fields = append(fields, ve.Field)
		}
	}
	want := []string{"logLevel", "sink.clientQueueSize", "tracing.samplingRate"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("invalid fields mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewLoader(path, "").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.ListenAddr != ":8090" {
		t.Errorf("API.ListenAddr = %q, want default", cfg.API.ListenAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), "").Load()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestValidate_Tracing(t *testing.T) {
	cfg := Defaults()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "zipkin"
	cfg.Tracing.Endpoint = ""

	err := Validate(cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "tracing.exporter" {
		t.Fatalf("expected tracing.exporter error first, got %v", err)
	}
}

func TestValidate_MetricsListenCollision(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.ListenAddr = cfg.API.ListenAddr
	if err := Validate(cfg); err == nil {
		t.Fatal("expected collision error")
	}

	cfg.Metrics.ListenAddr = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled metrics server must validate, got %v", err)
	}
}
