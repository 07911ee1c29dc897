// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/recording"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
)

// StartListening begins a recording session. An empty cfg falls back to the
// configured default session. Calling it while a session is active succeeds
// without changes and reports alreadyActive.
//
// The whole config is validated before anything starts. If a producer fails
// to start, every producer started by this call is stopped again.
func (s *DataSink) StartListening(ctx context.Context, cfg model.SessionConfig) (alreadyActive bool, err error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	active := s.session.Active()
	s.mu.RUnlock()
	if active {
		return true, nil
	}

	explicit := !cfg.Empty()
	if !explicit && s.defaultSession != nil {
		cfg = s.defaultSession()
	}
	if err := s.reg.ValidateConfig(cfg); err != nil {
		return false, err
	}

	var (
		entries []*producerEntry
		created []*producerEntry
		started []*producerEntry
	)
	rollback := func() {
		for _, e := range started {
			_ = s.stopLocked(ctx, e)
		}
		for _, e := range created {
			s.unloadLocked(e)
		}
	}

	for _, id := range cfg.ProducerSet() {
		e, isNew, err := s.loadLocked(ctx, id)
		if err != nil {
			rollback()
			return false, err
		}
		if isNew {
			created = append(created, e)
		}
		didStart, err := s.startLocked(ctx, e)
		if err != nil {
			rollback()
			return false, err
		}
		if didStart {
			started = append(started, e)
		}
		entries = append(entries, e)
	}

	s.mu.Lock()
	for _, e := range entries {
		e.holders[recording.SessionOwner] = struct{}{}
	}
	for _, key := range cfg.Features {
		s.session.Enable(recording.SessionOwner, key.Producer, []string{key.Feature})
	}
	s.session.SetActive(true)
	s.mu.Unlock()

	producers, features := cfg.Strings()
	l := xglog.WithContext(ctx, s.logger)
	l.Info().
		Str(xglog.FieldEvent, "recording.started").
		Strs("producers", producers).
		Strs("features", features).
		Msg("recording started")

	if explicit && s.sessionStarted != nil {
		s.sessionStarted(cfg)
	}
	return false, nil
}

// StopListening ends the recording session: every started producer is stopped
// and all enabled features are cleared.
func (s *DataSink) StopListening(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	var stopped []*producerEntry
	for _, id := range s.session.StartedProducers() {
		if e := s.producers[id]; e != nil {
			e.epoch.Add(1)
			stopped = append(stopped, e)
		}
	}
	for _, e := range s.producers {
		delete(e.holders, recording.SessionOwner)
	}
	s.session.Reset()
	clients := s.clientListLocked()
	s.mu.Unlock()
	fence(clients)

	metrics.StartedProducers.Set(0)
	err := s.stopEntries(ctx, stopped, "producer.stopped")
	l := xglog.WithContext(ctx, s.logger)
	l.Info().
		Str(xglog.FieldEvent, "recording.stopped").
		Int("producers", len(stopped)).
		Msg("recording stopped")
	return err
}
