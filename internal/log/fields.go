// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldClientID   = "client_id"
	FieldConnID     = "conn_id"
	FieldRequestID  = "request_id"
	FieldActorID    = "actor_id"
	FieldProducerID = "producer_id"
	FieldFeature    = "feature"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldRequest   = "request_type"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Trace fields
	FieldTraceID = "trace_id"
	FieldSpanID  = "span_id"

	// Path fields
	FieldPath = "path"
)
