// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package prefs persists the recording preferences: which producers and
// features a recording starts with when the client names none, plus opaque
// UI settings.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
)

// Prefs is the on-disk document.
type Prefs struct {
	ActiveProducers []string               `yaml:"activeProducers"`
	ActiveFeatures  []string               `yaml:"activeFeatures"`
	UI              map[string]interface{} `yaml:"ui,omitempty"`
}

// Defaults mirrors the preferences shipped with the timeline UI.
func Defaults() Prefs {
	return Prefs{
		ActiveProducers: []string{string(model.NetworkProducer), string(model.PageEventsProducer)},
		ActiveFeatures:  []string{model.FeatureKey{Producer: model.PageEventsProducer, Feature: "PageEvent"}.String()},
	}
}

// SessionConfig parses the active sets.
func (p Prefs) SessionConfig() (model.SessionConfig, error) {
	return model.ParseSessionConfig(p.ActiveProducers, p.ActiveFeatures)
}

func (p Prefs) clone() Prefs {
	out := Prefs{
		ActiveProducers: append([]string(nil), p.ActiveProducers...),
		ActiveFeatures:  append([]string(nil), p.ActiveFeatures...),
	}
	if p.UI != nil {
		out.UI = make(map[string]interface{}, len(p.UI))
		for k, v := range p.UI {
			out.UI[k] = v
		}
	}
	return out
}

// Store holds the current preferences and keeps them in sync with a file.
// An empty path keeps everything in memory.
type Store struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	current Prefs

	listenersMu sync.Mutex
	listeners   []chan<- Prefs
}

// Open loads path, falling back to Defaults when the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		logger:  xglog.WithComponent("prefs"),
		current: Defaults(),
	}
	if path == "" {
		return s, nil
	}
	p, err := readFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info().Str(xglog.FieldPath, path).Msg("preferences file not found, using defaults")
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.current = p
	return s, nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

func (s *Store) Get() Prefs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// SessionConfig returns the config startListening applies by default. The
// stored sets are validated on load, so a parse failure here falls back to
// Defaults.
func (s *Store) SessionConfig() model.SessionConfig {
	cfg, err := s.Get().SessionConfig()
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored preferences invalid, using defaults")
		cfg, _ = Defaults().SessionConfig()
	}
	return cfg
}

// Remember stores cfg as the new active sets and saves the file.
func (s *Store) Remember(cfg model.SessionConfig) error {
	producers, features := cfg.Strings()
	s.mu.Lock()
	s.current.ActiveProducers = producers
	s.current.ActiveFeatures = features
	s.mu.Unlock()
	return s.Save()
}

// SetUI replaces one opaque UI preference and saves the file.
func (s *Store) SetUI(key string, value interface{}) error {
	s.mu.Lock()
	if s.current.UI == nil {
		s.current.UI = make(map[string]interface{})
	}
	s.current.UI[key] = value
	s.mu.Unlock()
	return s.Save()
}

// Save writes the current preferences atomically. In-memory stores are a
// no-op.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.Get()); err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending preferences file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Msg("cleanup pending preferences file")
		}
	}()
	if _, err := pending.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}

// Reload re-reads the file. On failure the current preferences are kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	p, err := readFile(s.path)
	if err != nil {
		metrics.IncPrefsReload("error")
		return err
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()

	metrics.IncPrefsReload("ok")
	s.notify(p)
	return nil
}

// Subscribe registers ch for reload notifications. Sends never block; a full
// channel misses the update.
func (s *Store) Subscribe(ch chan<- Prefs) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, ch)
}

func (s *Store) notify(p Prefs) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- p.clone():
		default:
			s.logger.Warn().Msg("preferences listener full, update skipped")
		}
	}
}

func readFile(path string) (Prefs, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return Prefs{}, err
	}
	defer func() { _ = f.Close() }()
	return decode(f)
}

// decode parses strictly and validates the active sets.
func decode(r io.Reader) (Prefs, error) {
	var p Prefs
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Prefs{}, fmt.Errorf("parse preferences: %w", err)
	}
	if _, err := p.SessionConfig(); err != nil {
		return Prefs{}, fmt.Errorf("invalid preferences: %w", err)
	}
	return p, nil
}
