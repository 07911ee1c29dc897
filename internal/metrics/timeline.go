// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for EventsDroppedTotal.
const (
	DropNotStarted   = "not_started"
	DropNotEnabled   = "not_enabled"
	DropNoSubscriber = "no_subscriber"
	DropQueueFull    = "queue_full"
	DropStale        = "stale"
	DropPipelineFull = "pipeline_full"
	DropSendFailed   = "send_failed"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_requests_total",
		Help: "Total number of sink actor requests by type and result",
	}, []string{"type", "result"})

	EventsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_events_emitted_total",
		Help: "Total number of events handed to the sink by producers",
	}, []string{"producer", "feature"})

	EventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_events_delivered_total",
		Help: "Total number of event packets written to client connections",
	}, []string{"producer"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_events_dropped_total",
		Help: "Total number of events dropped by producer and reason",
	}, []string{"producer", "reason"})

	RegisteredClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_registered_clients",
		Help: "Number of UI clients currently registered with the sink",
	})

	StartedProducers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_started_producers",
		Help: "Number of producers currently in the started state",
	})

	ProducerStartFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_producer_start_failures_total",
		Help: "Total number of producer start failures",
	}, []string{"producer"})

	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_ingest_total",
		Help: "Total number of ingested raw events by producer and result",
	}, []string{"producer", "result"})

	PrefsReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_prefs_reloads_total",
		Help: "Total number of preference file reloads by result",
	}, []string{"result"})
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// IncRequest records one dispatched actor request.
func IncRequest(requestType, result string) {
	RequestsTotal.WithLabelValues(orUnknown(requestType), orUnknown(result)).Inc()
}

// IncEventEmitted records an event handed to the sink.
func IncEventEmitted(producer, feature string) {
	EventsEmittedTotal.WithLabelValues(orUnknown(producer), orUnknown(feature)).Inc()
}

// IncEventDelivered records an event packet written to a client.
func IncEventDelivered(producer string) {
	EventsDeliveredTotal.WithLabelValues(orUnknown(producer)).Inc()
}

// IncEventDropped records a dropped event with a concrete reason.
func IncEventDropped(producer, reason string) {
	EventsDroppedTotal.WithLabelValues(orUnknown(producer), orUnknown(reason)).Inc()
}

// IncProducerStartFailure records a failed producer start.
func IncProducerStartFailure(producer string) {
	ProducerStartFailuresTotal.WithLabelValues(orUnknown(producer)).Inc()
}

// IncIngest records one raw event received from a browser agent.
func IncIngest(producer, result string) {
	IngestTotal.WithLabelValues(orUnknown(producer), orUnknown(result)).Inc()
}

// AddIngest records n raw events with the same result.
func AddIngest(producer, result string, n int) {
	if n <= 0 {
		return
	}
	IngestTotal.WithLabelValues(orUnknown(producer), orUnknown(result)).Add(float64(n))
}

// IncPrefsReload records a preference reload attempt.
func IncPrefsReload(result string) {
	PrefsReloadsTotal.WithLabelValues(orUnknown(result)).Inc()
}
