// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sink implements the Data Sink: the single owner of producer state,
// the recording session and the UI client registry, and the fan-out point
// for every captured event.
//
// Mutations are serialized by opMu, which is held across producer Start and
// Stop calls. The state read by the emit path is guarded by mu and is never
// held across a call into a producer or a client connection.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/recording"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/registry"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
	"github.com/ManuGH/timelinesink/internal/telemetry"
)

const defaultClientQueueSize = 256

// ErrClosed is returned by Init once the sink has been closed.
var ErrClosed = errors.New("sink closed")

// Config configures a DataSink.
type Config struct {
	Registry *registry.Registry
	// ClientQueueSize bounds each client's outbound queue. Events that do not
	// fit are dropped for that client.
	ClientQueueSize int
	// DefaultSession supplies the session config used by StartListening when
	// the caller passes none (the preference store).
	DefaultSession func() model.SessionConfig
	// SessionStarted is called after StartListening succeeds with a config
	// supplied by the caller.
	SessionStarted func(model.SessionConfig)
	// Name is the "from" field of pushed event packets.
	Name string
	// MeterProvider receives the event counters. Nil uses the global
	// provider.
	MeterProvider metric.MeterProvider
	Logger        *zerolog.Logger
}

type producerEntry struct {
	id      model.ProducerID
	p       ports.Producer
	epoch   atomic.Uint64
	holders map[model.ClientID]struct{}
}

type client struct {
	id     model.ClientID
	sender ports.PacketSender
	queue  chan delivery
	done   chan struct{}
	once   sync.Once

	// gate is read-held for the duration of every event write.
	gate   sync.RWMutex
	closed atomic.Bool
}

func (c *client) close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

// fence waits for the event writes in flight on each client. Writes admitted
// afterwards observe every epoch bump and close made before the call.
func fence(clients []*client) {
	for _, c := range clients {
		c.gate.Lock()
		c.gate.Unlock() //nolint:staticcheck // barrier
	}
}

// clientListLocked returns the registered clients. Callers hold mu.
func (s *DataSink) clientListLocked() []*client {
	out := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

type delivery struct {
	packet model.Packet
	entry  *producerEntry
	epoch  uint64
}

// DataSink is the hub. One instance is shared by every SinkActor.
type DataSink struct {
	opMu sync.Mutex
	mu   sync.RWMutex

	reg            *registry.Registry
	queueSize      int
	defaultSession func() model.SessionConfig
	sessionStarted func(model.SessionConfig)
	name           string
	logger         zerolog.Logger
	instruments    *telemetry.EventInstruments

	session   *recording.Session
	producers map[model.ProducerID]*producerEntry
	clients   map[model.ClientID]*client
	initiated bool
	closed    bool

	ctx     context.Context
	cancel  context.CancelFunc
	workers workerGroup
}

// New constructs a DataSink owning its own state.
func New(cfg Config) (*DataSink, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("sink: registry is required")
	}
	if cfg.ClientQueueSize <= 0 {
		cfg.ClientQueueSize = defaultClientQueueSize
	}
	if cfg.Name == "" {
		cfg.Name = model.SinkActorName
	}
	logger := xglog.WithComponent("sink")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str(xglog.FieldComponent, "sink").Logger()
	}

	instruments, err := telemetry.NewEventInstruments(cfg.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DataSink{
		reg:            cfg.Registry,
		queueSize:      cfg.ClientQueueSize,
		defaultSession: cfg.DefaultSession,
		sessionStarted: cfg.SessionStarted,
		name:           cfg.Name,
		logger:         logger,
		instruments:    instruments,
		session:        recording.NewSession(),
		producers:      make(map[model.ProducerID]*producerEntry),
		clients:        make(map[model.ClientID]*client),
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// Registry returns the feature registry the sink validates against.
func (s *DataSink) Registry() *registry.Registry { return s.reg }

// Init registers a UI client. Re-registering an existing ID is a no-op.
// The first client marks the sink initiated.
func (s *DataSink) Init(ctx context.Context, id model.ClientID, sender ports.PacketSender) error {
	if id == "" {
		return model.NewError(model.CodeBadRequest, "init requires a timelineUIId")
	}
	if sender == nil {
		return model.NewError(model.CodeBadRequest, "init requires a packet sender")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.clients[id]; ok {
		s.mu.Unlock()
		return nil
	}
	first := !s.initiated
	s.initiated = true
	c := &client{
		id:     id,
		sender: sender,
		queue:  make(chan delivery, s.queueSize),
		done:   make(chan struct{}),
	}
	s.clients[id] = c
	count := len(s.clients)
	s.mu.Unlock()

	if !s.workers.Go(func() { s.pump(c) }) {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
		return ErrClosed
	}

	metrics.RegisteredClients.Set(float64(count))
	l := xglog.WithContext(ctx, s.logger)
	if first {
		l.Info().Str(xglog.FieldEvent, "sink.initiated").Msg("first timeline ui registered")
	}
	l.Info().
		Str(xglog.FieldEvent, "sink.client_registered").
		Str(xglog.FieldClientID, string(id)).
		Int("clients", count).
		Msg("timeline ui registered")
	return nil
}

// IsRegistered reports whether id is in the client registry.
func (s *DataSink) IsRegistered(id model.ClientID) bool {
	if id == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[id]
	return ok
}

// Destroy removes one client, releasing producers nobody depends on any
// more; when the last client leaves, or id is empty, the whole sink is torn
// down. It is idempotent and best-effort: every cleanup step runs and the
// joined cleanup errors are returned for logging only.
func (s *DataSink) Destroy(ctx context.Context, id model.ClientID) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.destroyLocked(ctx, id, nil)
}

func (s *DataSink) destroyLocked(ctx context.Context, id model.ClientID, only *client) error {
	l := xglog.WithContext(ctx, s.logger)

	if id == "" {
		return s.teardownLocked(ctx)
	}

	s.mu.Lock()
	c, ok := s.clients[id]
	if !ok || (only != nil && c != only) {
		s.mu.Unlock()
		return nil
	}
	delete(s.clients, id)
	c.close()
	s.session.DropOwner(id)
	for _, e := range s.producers {
		delete(e.holders, id)
	}
	remaining := len(s.clients)
	s.mu.Unlock()
	fence([]*client{c})

	metrics.RegisteredClients.Set(float64(remaining))
	l.Info().
		Str(xglog.FieldEvent, "sink.client_unregistered").
		Str(xglog.FieldClientID, string(id)).
		Int("clients", remaining).
		Msg("timeline ui unregistered")

	if remaining == 0 {
		return s.teardownLocked(ctx)
	}
	return s.releaseUnheldLocked(ctx)
}

// releaseUnheldLocked stops and unloads every producer without holders.
func (s *DataSink) releaseUnheldLocked(ctx context.Context) error {
	s.mu.Lock()
	var released []*producerEntry
	for id, e := range s.producers {
		if len(e.holders) > 0 {
			continue
		}
		s.session.MarkStopped(id)
		s.session.DropProducer(id)
		e.epoch.Add(1)
		delete(s.producers, id)
		released = append(released, e)
	}
	started := len(s.session.StartedProducers())
	clients := s.clientListLocked()
	s.mu.Unlock()
	if len(released) > 0 {
		fence(clients)
	}

	metrics.StartedProducers.Set(float64(started))
	return s.stopEntries(ctx, released, "producer.released")
}

// teardownLocked stops every producer, clears the session and empties the
// client registry.
func (s *DataSink) teardownLocked(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*producerEntry, 0, len(s.producers))
	for _, e := range s.producers {
		e.epoch.Add(1)
		entries = append(entries, e)
	}
	clients := s.clientListLocked()
	for _, c := range clients {
		c.close()
	}
	s.clients = make(map[model.ClientID]*client)
	s.producers = make(map[model.ProducerID]*producerEntry)
	s.session.Reset()
	s.initiated = false
	s.mu.Unlock()
	fence(clients)

	metrics.RegisteredClients.Set(0)
	metrics.StartedProducers.Set(0)

	err := s.stopEntries(ctx, entries, "producer.released")
	l := xglog.WithContext(ctx, s.logger)
	l.Info().
		Str(xglog.FieldEvent, "sink.teardown").
		Int("clients", len(clients)).
		Int("producers", len(entries)).
		Msg("sink torn down")
	return err
}

// stopEntries calls Stop on every producer, joining failures.
func (s *DataSink) stopEntries(ctx context.Context, entries []*producerEntry, event string) error {
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	var errs []error
	l := xglog.WithContext(ctx, s.logger)
	for _, e := range entries {
		if err := e.p.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", e.id, err))
			l.Warn().Err(err).
				Str(xglog.FieldEvent, "producer.stop_failed").
				Str(xglog.FieldProducerID, string(e.id)).
				Msg("producer stop failed")
			continue
		}
		l.Debug().
			Str(xglog.FieldEvent, event).
			Str(xglog.FieldProducerID, string(e.id)).
			Msg("producer stopped")
	}
	return errors.Join(errs...)
}

// Close tears the sink down and waits for its goroutines.
func (s *DataSink) Close(ctx context.Context) error {
	s.opMu.Lock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	err := s.teardownLocked(ctx)
	s.opMu.Unlock()

	s.cancel()
	if werr := s.workers.CloseAndWait(ctx); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}

// Closed reports whether Close has been called.
func (s *DataSink) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ReplyToPing answers a liveness ping; it returns the current snapshot.
func (s *DataSink) ReplyToPing() model.Snapshot {
	return s.Snapshot()
}

// Snapshot returns a consistent view of the sink state.
func (s *DataSink) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.Snapshot{
		Initiated:        s.initiated,
		Active:           s.session.Active(),
		RegisteredUI:     make([]model.ClientID, 0, len(s.clients)),
		StartedProducers: s.session.StartedProducers(),
		LoadedProducers:  make([]model.ProducerID, 0, len(s.producers)),
		EnabledFeatures:  []string{},
	}
	for id := range s.clients {
		snap.RegisteredUI = append(snap.RegisteredUI, id)
	}
	sort.Slice(snap.RegisteredUI, func(i, j int) bool { return snap.RegisteredUI[i] < snap.RegisteredUI[j] })
	for id := range s.producers {
		snap.LoadedProducers = append(snap.LoadedProducers, id)
	}
	sort.Slice(snap.LoadedProducers, func(i, j int) bool { return snap.LoadedProducers[i] < snap.LoadedProducers[j] })
	for _, k := range s.session.EnabledFeatures() {
		snap.EnabledFeatures = append(snap.EnabledFeatures, k.String())
	}
	return snap
}
