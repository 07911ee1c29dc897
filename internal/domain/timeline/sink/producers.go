// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
)

// loadLocked returns the producer instance for id, creating it through the
// registry factory on first use. created reports whether this call loaded it.
func (s *DataSink) loadLocked(ctx context.Context, id model.ProducerID) (e *producerEntry, created bool, err error) {
	s.mu.RLock()
	e = s.producers[id]
	s.mu.RUnlock()
	if e != nil {
		return e, false, nil
	}

	factory, ok := s.reg.Factory(id)
	if !ok {
		return nil, false, model.UnknownProducer(id)
	}
	p, err := factory()
	if err != nil {
		metrics.IncProducerStartFailure(string(id))
		return nil, false, model.ProducerStartFailure(id, err)
	}

	e = &producerEntry{id: id, p: p, holders: make(map[model.ClientID]struct{})}
	s.mu.Lock()
	s.producers[id] = e
	s.mu.Unlock()

	l := xglog.WithContext(ctx, s.logger)

	l.Debug().
		Str(xglog.FieldEvent, "producer.loaded").
		Str(xglog.FieldProducerID, string(id)).
		Msg("producer loaded")
	return e, true, nil
}

// unloadLocked drops an entry this operation created but could not use.
func (s *DataSink) unloadLocked(e *producerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.producers[e.id] == e && len(e.holders) == 0 && !s.session.IsStarted(e.id) {
		delete(s.producers, e.id)
	}
}

// startLocked starts the producer unless it is already running. The entry is
// marked started only after Start returns successfully.
func (s *DataSink) startLocked(ctx context.Context, e *producerEntry) (started bool, err error) {
	s.mu.RLock()
	running := s.session.IsStarted(e.id)
	s.mu.RUnlock()
	if running {
		return false, nil
	}

	l := xglog.WithContext(ctx, s.logger)
	if err := e.p.Start(s.ctx, s.emitter(e)); err != nil {
		metrics.IncProducerStartFailure(string(e.id))
		l.Warn().Err(err).
			Str(xglog.FieldEvent, "producer.start_failed").
			Str(xglog.FieldProducerID, string(e.id)).
			Msg("producer failed to start")
		return false, model.ProducerStartFailure(e.id, err)
	}

	s.mu.Lock()
	s.session.MarkStarted(e.id)
	count := len(s.session.StartedProducers())
	s.mu.Unlock()

	metrics.StartedProducers.Set(float64(count))
	l.Info().
		Str(xglog.FieldEvent, "producer.started").
		Str(xglog.FieldProducerID, string(e.id)).
		Msg("producer started")
	return true, nil
}

// stopLocked marks the producer stopped, invalidates everything it has queued,
// waits out writes already in flight and then stops it.
func (s *DataSink) stopLocked(ctx context.Context, e *producerEntry) error {
	s.mu.Lock()
	if !s.session.IsStarted(e.id) {
		s.mu.Unlock()
		return nil
	}
	s.session.MarkStopped(e.id)
	e.epoch.Add(1)
	count := len(s.session.StartedProducers())
	clients := s.clientListLocked()
	s.mu.Unlock()
	fence(clients)

	metrics.StartedProducers.Set(float64(count))
	return s.stopEntries(ctx, []*producerEntry{e}, "producer.stopped")
}

// EnableFeatures validates and enables features on producer for client. The
// producer is loaded if needed but not started.
func (s *DataSink) EnableFeatures(ctx context.Context, client model.ClientID, producer model.ProducerID, features []string) error {
	if err := s.reg.Validate(producer, features); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	e, _, err := s.loadLocked(ctx, producer)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.session.Enable(client, producer, features)
	e.holders[client] = struct{}{}
	s.mu.Unlock()

	l := xglog.WithContext(ctx, s.logger)

	l.Debug().
		Str(xglog.FieldEvent, "feature.enabled").
		Str(xglog.FieldClientID, string(client)).
		Str(xglog.FieldProducerID, string(producer)).
		Strs("features", features).
		Msg("features enabled")
	return nil
}

// DisableFeatures removes the features for client. Pairs that were never
// enabled are ignored.
func (s *DataSink) DisableFeatures(ctx context.Context, client model.ClientID, producer model.ProducerID, features []string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.session.Disable(client, producer, features)
	s.mu.Unlock()

	l := xglog.WithContext(ctx, s.logger)

	l.Debug().
		Str(xglog.FieldEvent, "feature.disabled").
		Str(xglog.FieldClientID, string(client)).
		Str(xglog.FieldProducerID, string(producer)).
		Strs("features", features).
		Msg("features disabled")
	return nil
}

// StartProducer loads and starts producer, then enables features for client.
func (s *DataSink) StartProducer(ctx context.Context, client model.ClientID, producer model.ProducerID, features []string) error {
	if err := s.reg.Validate(producer, features); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	e, created, err := s.loadLocked(ctx, producer)
	if err != nil {
		return err
	}
	if _, err := s.startLocked(ctx, e); err != nil {
		if created {
			s.unloadLocked(e)
		}
		return err
	}

	s.mu.Lock()
	s.session.Enable(client, producer, features)
	e.holders[client] = struct{}{}
	s.mu.Unlock()
	return nil
}

// StopProducer stops producer. Its enabled features are remembered and apply
// again if it is restarted. Unknown or idle producers are ignored.
func (s *DataSink) StopProducer(ctx context.Context, client model.ClientID, producer model.ProducerID) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	e := s.producers[producer]
	s.mu.RUnlock()
	if e == nil {
		return nil
	}
	if err := s.stopLocked(ctx, e); err != nil {
		l := xglog.WithContext(ctx, s.logger)
		l.Warn().Err(err).
			Str(xglog.FieldClientID, string(client)).
			Str(xglog.FieldProducerID, string(producer)).
			Msg("stop producer reported an error")
	}
	return nil
}

// Ingest hands externally captured events to a loaded producer. It returns
// the number of events the producer accepted and whether the producer is
// loaded and accepts ingestion at all.
func (s *DataSink) Ingest(producer model.ProducerID, events []model.Event) (accepted int, ok bool) {
	s.mu.RLock()
	e := s.producers[producer]
	s.mu.RUnlock()
	if e == nil {
		return 0, false
	}
	in, isIngester := e.p.(ports.Ingester)
	if !isIngester {
		return 0, false
	}
	for _, ev := range events {
		ev.Producer = producer
		if in.Ingest(ev) {
			accepted++
		}
	}
	return accepted, true
}
