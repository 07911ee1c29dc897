// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package producer provides the shared machinery of the built-in producers:
// a bounded emission pipeline drained by one goroutine, so events reach the
// sink in the order they were published.
package producer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
)

const (
	DefaultBufferSize = 128
	dropLogEvery      = 100
)

// Source runs alongside a started producer and publishes events it captures
// itself (for example a sampler). It must return when ctx is done.
type Source func(ctx context.Context, publish func(model.Event) bool)

// Normalizer validates and rewrites an ingested event. Returning false
// rejects the event.
type Normalizer func(ev *model.Event) bool

type Options struct {
	BufferSize int
	Logger     *zerolog.Logger
	Source     Source
	Normalize  Normalizer
}

// Base implements ports.Producer and ports.Ingester.
type Base struct {
	id        model.ProducerID
	features  []string
	known     map[string]struct{}
	buffer    int
	source    Source
	normalize Normalizer
	logger    zerolog.Logger
	dropped   atomic.Uint64

	mu       sync.Mutex
	running  bool
	pipeline chan model.Event
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewBase(id model.ProducerID, features []string, opts Options) *Base {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	logger := xglog.WithComponent("producer")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	known := make(map[string]struct{}, len(features))
	for _, f := range features {
		known[f] = struct{}{}
	}
	return &Base{
		id:        id,
		features:  append([]string(nil), features...),
		known:     known,
		buffer:    opts.BufferSize,
		source:    opts.Source,
		normalize: opts.Normalize,
		logger:    logger.With().Str(xglog.FieldProducerID, string(id)).Logger(),
	}
}

func (b *Base) ID() model.ProducerID { return b.id }

func (b *Base) Features() []string { return append([]string(nil), b.features...) }

// Running reports whether the producer is started.
func (b *Base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start launches the pipeline loop and the optional source. Starting a
// running producer is a no-op.
func (b *Base) Start(ctx context.Context, emit ports.Emitter) error {
	if emit == nil {
		return fmt.Errorf("producer %s: nil emitter", b.id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	pipeline := make(chan model.Event, b.buffer)
	b.pipeline = pipeline
	b.cancel = cancel
	b.running = true

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.loop(runCtx, pipeline, emit)
	}()
	if b.source != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.source(runCtx, b.Publish)
		}()
	}
	return nil
}

// Stop halts the loop and waits for it. Events still in the pipeline are
// abandoned.
func (b *Base) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.pipeline = nil
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	return nil
}

// Publish enqueues an event without blocking. It returns false when the
// producer is stopped or its pipeline is full.
func (b *Base) Publish(ev model.Event) bool {
	b.mu.Lock()
	pipeline := b.pipeline
	b.mu.Unlock()
	if pipeline == nil {
		return false
	}

	ev.Producer = b.id
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	select {
	case pipeline <- ev:
		return true
	default:
		metrics.IncEventDropped(string(b.id), metrics.DropPipelineFull)
		if n := b.dropped.Add(1); n%dropLogEvery == 1 {
			b.logger.Warn().
				Str(xglog.FieldFeature, ev.Type).
				Uint64("dropped", n).
				Msg("producer pipeline full, dropping events")
		}
		return false
	}
}

// Ingest accepts an event captured by an external agent. Events for
// features the producer does not expose are rejected.
func (b *Base) Ingest(ev model.Event) bool {
	if _, ok := b.known[ev.Type]; !ok {
		return false
	}
	if b.normalize != nil && !b.normalize(&ev) {
		return false
	}
	return b.Publish(ev)
}

func (b *Base) loop(ctx context.Context, pipeline <-chan model.Event, emit ports.Emitter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-pipeline:
			b.deliver(emit, ev)
		}
	}
}

// deliver shields the loop from a panicking emitter.
func (b *Base) deliver(emit ports.Emitter, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str(xglog.FieldFeature, ev.Type).
				Msg("event emission panicked")
		}
	}()
	emit(ev)
}

var (
	_ ports.Producer = (*Base)(nil)
	_ ports.Ingester = (*Base)(nil)
)
