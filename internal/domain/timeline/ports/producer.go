// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import (
	"context"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

// Emitter receives events from a started producer. It is safe to call from
// any goroutine and never blocks on slow consumers.
type Emitter func(ev model.Event)

// Producer is a pluggable event source owned by the sink.
//
// Start must return quickly; a producer whose own startup is asynchronous
// begins emitting once that startup completes. Stop must not block on the
// emitter and may leave buffered events behind: the sink discards them.
type Producer interface {
	ID() model.ProducerID
	Features() []string
	Start(ctx context.Context, emit Emitter) error
	Stop() error
}

// Ingester is implemented by producers that relay events pushed by an
// external agent (the browser side of the instrumentation).
type Ingester interface {
	Ingest(ev model.Event) bool
}

// ProducerFactory creates a producer instance on first use.
type ProducerFactory func() (Producer, error)
