// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "fmt"

// Transition is a single edge in the actor state machine. Events that are
// allowed but absent from the table leave the state unchanged.
type Transition struct {
	From  State
	To    State
	Event EventKind
}

var transitionsTable = []Transition{
	{From: StateConnected, To: StateInitialized, Event: EvInit},

	{From: StateInitialized, To: StateRecording, Event: EvStartRecording},
	{From: StateRecording, To: StateInitialized, Event: EvStopRecording},

	{From: StateConnected, To: StateDestroyed, Event: EvDestroy},
	{From: StateInitialized, To: StateDestroyed, Event: EvDestroy},
	{From: StateRecording, To: StateDestroyed, Event: EvDestroy},

	{From: StateConnected, To: StateDestroyed, Event: EvDisconnect},
	{From: StateInitialized, To: StateDestroyed, Event: EvDisconnect},
	{From: StateRecording, To: StateDestroyed, Event: EvDisconnect},

	// Reconciliation with changes made by other connections.
	{From: StateRecording, To: StateInitialized, Event: EvSessionEnded},
	{From: StateInitialized, To: StateConnected, Event: EvReleased},
	{From: StateRecording, To: StateConnected, Event: EvReleased},
}

// TransitionFor returns the edge for state+event, if the table has one.
func TransitionFor(from State, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// IllegalTransitionError reports an event the decision table forbids.
type IllegalTransitionError struct {
	From   State
	Event  EventKind
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal %s in state %s (%s)", e.Event, e.From, e.Reason)
}

// Next resolves the state after ev without mutating anything.
func Next(from State, ev EventKind) (State, error) {
	d, ok := DecisionFor(from, ev)
	if !ok {
		return from, &IllegalTransitionError{From: from, Event: ev, Reason: "undefined"}
	}
	if !d.Allowed {
		return from, &IllegalTransitionError{From: from, Event: ev, Reason: d.Reason}
	}
	if tr, ok := TransitionFor(from, ev); ok {
		return tr.To, nil
	}
	return from, nil
}
