// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/registry"
)

type fakeProducer struct {
	id model.ProducerID

	mu       sync.Mutex
	emit     ports.Emitter
	startErr error
	starts   int
	stops    int
	ingested []model.Event
}

func (f *fakeProducer) ID() model.ProducerID { return f.id }
func (f *fakeProducer) Features() []string   { return nil }

func (f *fakeProducer) Start(_ context.Context, emit ports.Emitter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.emit = emit
	return nil
}

func (f *fakeProducer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeProducer) Ingest(ev model.Event) bool {
	f.mu.Lock()
	f.ingested = append(f.ingested, ev)
	f.mu.Unlock()
	return f.emitEvent(ev)
}

// fakeEventTime stamps every event sent through Emit.
var fakeEventTime = time.UnixMilli(1700000000000)

// Emit calls the last emitter handed to Start, even after Stop.
func (f *fakeProducer) Emit(feature string, data map[string]interface{}) bool {
	return f.emitEvent(model.Event{Type: feature, Time: fakeEventTime, Data: data})
}

func (f *fakeProducer) emitEvent(ev model.Event) bool {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	if emit == nil {
		return false
	}
	emit(ev)
	return true
}

func (f *fakeProducer) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

// fakeCatalog registers fake producers and remembers the latest instance of
// each.
type fakeCatalog struct {
	mu       sync.Mutex
	reg      *registry.Registry
	latest   map[model.ProducerID]*fakeProducer
	startErr map[model.ProducerID]error
}

func newFakeCatalog() *fakeCatalog {
	c := &fakeCatalog{
		reg:      registry.New(),
		latest:   make(map[model.ProducerID]*fakeProducer),
		startErr: make(map[model.ProducerID]error),
	}
	c.add(model.NetworkProducer, "HTTPEvent")
	c.add(model.PageEventsProducer, "PageEvent", "WindowEvent", "MouseEvent", "KeyboardEvent")
	c.add(model.MemoryProducer, "MemoryEvent", "GCEvent")
	return c
}

func (c *fakeCatalog) add(id model.ProducerID, features ...string) {
	c.reg.MustRegister(id, features, func() (ports.Producer, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		p := &fakeProducer{id: id, startErr: c.startErr[id]}
		c.latest[id] = p
		return p, nil
	})
}

func (c *fakeCatalog) failStart(id model.ProducerID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startErr[id] = err
}

func (c *fakeCatalog) producer(t *testing.T, id model.ProducerID) *fakeProducer {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.latest[id]
	require.True(t, ok, "producer %s was never loaded", id)
	return p
}

// recorder is a PacketSender that records what it is sent. A non-nil gate
// blocks every Send until the gate is closed.
type recorder struct {
	gate    chan struct{}
	entered chan struct{}

	mu      sync.Mutex
	packets []model.Packet
	err     error
}

func newRecorder() *recorder {
	return &recorder{entered: make(chan struct{}, 64)}
}

func newGatedRecorder() *recorder {
	r := newRecorder()
	r.gate = make(chan struct{})
	return r
}

func (r *recorder) Send(p model.Packet) error {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.packets = append(r.packets, p)
	return nil
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// bufferedSender queues packets the way a transport with its own write queue
// does. flush writes them, honoring write guards.
type bufferedSender struct {
	mu      sync.Mutex
	pending []bufferedPacket
	written []model.Packet
}

type bufferedPacket struct {
	packet model.Packet
	guard  ports.WriteGuard
}

var _ ports.GuardedSender = (*bufferedSender)(nil)

func (b *bufferedSender) Send(p model.Packet) error { return b.SendGuarded(p, nil) }

func (b *bufferedSender) SendGuarded(p model.Packet, guard ports.WriteGuard) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, bufferedPacket{packet: p, guard: guard})
	return nil
}

func (b *bufferedSender) queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *bufferedSender) flush() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, item := range pending {
		if item.guard != nil {
			release, ok := item.guard()
			if !ok {
				continue
			}
			b.record(item.packet)
			release()
			continue
		}
		b.record(item.packet)
	}
}

func (b *bufferedSender) record(p model.Packet) {
	b.mu.Lock()
	b.written = append(b.written, p)
	b.mu.Unlock()
}

func (b *bufferedSender) Written() []model.Packet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Packet(nil), b.written...)
}

func (r *recorder) Packets() []model.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Packet(nil), r.packets...)
}

func (r *recorder) Types() []string {
	var out []string
	for _, p := range r.Packets() {
		out = append(out, p.Type)
	}
	return out
}

func newTestSink(t *testing.T, cat *fakeCatalog, mutate ...func(*Config)) *DataSink {
	t.Helper()
	logger := zerolog.New(io.Discard)
	cfg := Config{Registry: cat.reg, Logger: &logger}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, s.Close(ctx))
	})
	return s
}

func requireCode(t *testing.T, err error, code model.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var me *model.Error
	require.True(t, errors.As(err, &me), "expected *model.Error, got %T", err)
	require.Equal(t, code, me.Code)
}

func waitPackets(t *testing.T, r *recorder, n int) []model.Packet {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.Packets()) >= n }, 2*time.Second, 5*time.Millisecond)
	return r.Packets()
}
