// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package lifecycle is the per-actor connection state machine, expressed as
// an explicit decision table over State×EventKind.
package lifecycle

import "github.com/ManuGH/timelinesink/internal/domain/timeline/model"

// State is the lifecycle state of one sink actor.
type State string

const (
	StateConnected   State = "connected"
	StateInitialized State = "initialized"
	StateRecording   State = "recording"
	StateDestroyed   State = "destroyed"
)

// IsTerminal reports whether the state absorbs every further event.
func (s State) IsTerminal() bool { return s == StateDestroyed }

// EventKind classifies requests by their effect on the lifecycle.
type EventKind int

const (
	EvPing EventKind = iota
	EvInit
	EvDestroy
	EvMutate
	EvStartRecording
	EvStopRecording
	EvDisconnect
	// EvSessionEnded: the sink no longer records, whoever stopped it.
	EvSessionEnded
	// EvReleased: none of the actor's clients is registered any more.
	EvReleased
)

func (e EventKind) String() string {
	switch e {
	case EvPing:
		return "ping"
	case EvInit:
		return "init"
	case EvDestroy:
		return "destroy"
	case EvMutate:
		return "mutate"
	case EvStartRecording:
		return "start_recording"
	case EvStopRecording:
		return "stop_recording"
	case EvDisconnect:
		return "disconnect"
	case EvSessionEnded:
		return "session_ended"
	case EvReleased:
		return "released"
	default:
		return "unknown"
	}
}

// EventFor maps a request variant to its lifecycle event.
func EventFor(rt model.RequestType) (EventKind, bool) {
	switch rt {
	case model.RequestPing:
		return EvPing, true
	case model.RequestInit:
		return EvInit, true
	case model.RequestDestroy:
		return EvDestroy, true
	case model.RequestEnableFeatures, model.RequestDisableFeatures,
		model.RequestStartProducer, model.RequestStopProducer:
		return EvMutate, true
	case model.RequestStartRecording:
		return EvStartRecording, true
	case model.RequestStopRecording:
		return EvStopRecording, true
	default:
		return 0, false
	}
}
