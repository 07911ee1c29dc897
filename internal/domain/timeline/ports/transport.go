// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import "github.com/ManuGH/timelinesink/internal/domain/timeline/model"

// PacketSender is the outbound half of a client connection. A returned error
// means the client can no longer consume and must be unregistered.
type PacketSender interface {
	Send(p model.Packet) error
}

// SenderFunc adapts a function to PacketSender.
type SenderFunc func(p model.Packet) error

func (f SenderFunc) Send(p model.Packet) error { return f(p) }

// WriteGuard is evaluated immediately before a queued packet is written. When
// ok is true the packet is written and release is called afterwards; the sink
// cannot complete a stop or destroy while a guard is held.
type WriteGuard func() (release func(), ok bool)

// GuardedSender is implemented by senders that buffer packets before writing
// them. Event packets are handed over with a guard so that packets still
// buffered when a producer stops are discarded instead of written.
type GuardedSender interface {
	PacketSender
	SendGuarded(p model.Packet, guard WriteGuard) error
}
