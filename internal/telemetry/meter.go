// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	xglog "github.com/ManuGH/timelinesink/internal/log"
)

// MeterName is the instrumentation scope of the sink's OTel instruments.
const MeterName = "timelinesink"

// Instrument names.
const (
	MetricEventsEmitted   = "timeline.events.emitted"
	MetricEventsDelivered = "timeline.events.delivered"
	MetricEventsDropped   = "timeline.events.dropped"
)

// EventInstruments records event flow through the sink on an OTel meter.
// A nil *EventInstruments records nothing.
type EventInstruments struct {
	emitted   metric.Int64Counter
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
}

// NewEventInstruments creates the event counters on mp. A nil mp uses the
// global meter provider.
func NewEventInstruments(mp metric.MeterProvider) (*EventInstruments, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName)

	emitted, err := meter.Int64Counter(MetricEventsEmitted,
		metric.WithDescription("Events handed to the sink by producers"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricEventsEmitted, err)
	}
	delivered, err := meter.Int64Counter(MetricEventsDelivered,
		metric.WithDescription("Event packets written to UI clients"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricEventsDelivered, err)
	}
	dropped, err := meter.Int64Counter(MetricEventsDropped,
		metric.WithDescription("Events discarded before reaching a client"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricEventsDropped, err)
	}
	return &EventInstruments{emitted: emitted, delivered: delivered, dropped: dropped}, nil
}

func (i *EventInstruments) Emitted(ctx context.Context, producer, feature string) {
	if i == nil {
		return
	}
	i.emitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String(ProducerIDKey, producer),
		attribute.String(FeatureNameKey, feature),
	))
}

func (i *EventInstruments) Delivered(ctx context.Context, producer string) {
	if i == nil {
		return
	}
	i.delivered.Add(ctx, 1, metric.WithAttributes(attribute.String(ProducerIDKey, producer)))
}

func (i *EventInstruments) Dropped(ctx context.Context, producer, reason string) {
	if i == nil {
		return
	}
	i.dropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String(ProducerIDKey, producer),
		attribute.String(DropReasonKey, reason),
	))
}

// logExporter writes each collection of int64 sums as one structured log line
// per instrument. It backs the periodic reader; the OTLP pipeline carries
// traces only.
type logExporter struct {
	logger zerolog.Logger
}

var _ sdkmetric.Exporter = (*logExporter)(nil)

func newLogExporter() *logExporter {
	return &logExporter{logger: xglog.WithComponent("telemetry")}
}

func (e *logExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *logExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *logExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			total, series := summarize(sum)
			e.logger.Info().
				Str("event", "telemetry.metrics").
				Str("metric", m.Name).
				Int64("total", total).
				Interface("series", series).
				Msg("metric snapshot")
		}
	}
	return nil
}

func (e *logExporter) ForceFlush(context.Context) error { return nil }

func (e *logExporter) Shutdown(context.Context) error { return nil }

// summarize totals a sum and keys each data point by its sorted attributes.
func summarize(sum metricdata.Sum[int64]) (int64, map[string]int64) {
	var total int64
	series := make(map[string]int64, len(sum.DataPoints))
	for _, dp := range sum.DataPoints {
		total += dp.Value
		kvs := dp.Attributes.ToSlice()
		parts := make([]string, 0, len(kvs))
		for _, kv := range kvs {
			parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
		}
		sort.Strings(parts)
		series[strings.Join(parts, ",")] += dp.Value
	}
	return total, series
}
