// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

const (
	ForbiddenTerminalAbsorbing = "terminal_absorbing"
	ForbiddenRequiresInit      = "requires_init"
)

// Decision records whether an event is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every State×Event combination.
var decisionTable = map[State]map[EventKind]Decision{
	StateConnected: {
		EvPing:           allowed(),
		EvInit:           allowed(),
		EvDestroy:        allowed(),
		EvMutate:         forbid(ForbiddenRequiresInit),
		EvStartRecording: forbid(ForbiddenRequiresInit),
		EvStopRecording:  forbid(ForbiddenRequiresInit),
		EvDisconnect:     allowed(),
		EvSessionEnded:   allowed(),
		EvReleased:       allowed(),
	},
	StateInitialized: {
		EvPing:           allowed(),
		EvInit:           allowed(),
		EvDestroy:        allowed(),
		EvMutate:         allowed(),
		EvStartRecording: allowed(),
		EvStopRecording:  allowed(),
		EvDisconnect:     allowed(),
		EvSessionEnded:   allowed(),
		EvReleased:       allowed(),
	},
	StateRecording: {
		EvPing:           allowed(),
		EvInit:           allowed(),
		EvDestroy:        allowed(),
		EvMutate:         allowed(),
		EvStartRecording: allowed(),
		EvStopRecording:  allowed(),
		EvDisconnect:     allowed(),
		EvSessionEnded:   allowed(),
		EvReleased:       allowed(),
	},
	StateDestroyed: {
		EvPing:           allowed(),
		EvInit:           forbid(ForbiddenTerminalAbsorbing),
		EvDestroy:        allowed(),
		EvMutate:         forbid(ForbiddenTerminalAbsorbing),
		EvStartRecording: forbid(ForbiddenTerminalAbsorbing),
		EvStopRecording:  forbid(ForbiddenTerminalAbsorbing),
		EvDisconnect:     allowed(),
		EvSessionEnded:   allowed(),
		EvReleased:       allowed(),
	},
}

// DecisionFor returns the explicit decision for state×event.
func DecisionFor(from State, ev EventKind) (Decision, bool) {
	m, ok := decisionTable[from]
	if !ok {
		return Decision{}, false
	}
	d, ok := m[ev]
	return d, ok
}
