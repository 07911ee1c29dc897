// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/metrics"
)

// ingestEvent is one raw event pushed by a browser agent.
type ingestEvent struct {
	Type string                 `json:"type"`
	Time *eventTime             `json:"time,omitempty"`
	Data map[string]interface{} `json:"data"`
}

// eventTime accepts epoch milliseconds or an RFC 3339 string.
type eventTime struct{ time.Time }

func (t *eventTime) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("time must be epoch milliseconds or RFC 3339: %w", err)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}

type ingestResponse struct {
	Received int `json:"received"`
	Accepted int `json:"accepted"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	producer := model.ProducerID(chi.URLParam(r, "producerId"))
	logger := log.WithComponentFromContext(r.Context(), "ingest")

	raw, err := decodeIngest(http.MaxBytesReader(w, r.Body, s.cfg.MaxIngestBytes))
	if err != nil {
		metrics.IncIngest(string(producer), "malformed")
		writeError(w, http.StatusBadRequest, "malformed_event", err.Error())
		return
	}

	now := time.Now()
	events := make([]model.Event, 0, len(raw))
	for _, ev := range raw {
		at := now
		if ev.Time != nil {
			at = ev.Time.Time
		}
		events = append(events, model.Event{Type: ev.Type, Time: at, Data: ev.Data})
	}

	accepted, ok := s.cfg.Sink.Ingest(producer, events)
	if !ok {
		metrics.AddIngest(string(producer), "not_loaded", len(events))
		writeError(w, http.StatusNotFound, "producer_not_loaded", string(producer))
		return
	}

	metrics.AddIngest(string(producer), "accepted", accepted)
	if rejected := len(events) - accepted; rejected > 0 {
		metrics.AddIngest(string(producer), "rejected", rejected)
		logger.Debug().
			Str(log.FieldProducerID, string(producer)).
			Int("rejected", rejected).
			Msg("producer rejected ingested events")
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{Received: len(events), Accepted: accepted})
}

// decodeIngest reads a single event object or an array of them.
func decodeIngest(r io.Reader) ([]ingestEvent, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	var events []ingestEvent
	if body[0] == '[' {
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, err
		}
	} else {
		var ev ingestEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, err
		}
		events = []ingestEvent{ev}
	}

	for i, ev := range events {
		if ev.Type == "" {
			return nil, fmt.Errorf("event %d: type is required", i)
		}
	}
	return events, nil
}
