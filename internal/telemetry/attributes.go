// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

// Attribute keys shared by the sink's spans and instruments.
const (
	RequestTypeKey = "timeline.request.type"
	ClientIDKey    = "timeline.client_id"
	ProducerIDKey  = "timeline.producer_id"
	FeaturesKey    = "timeline.features"
	FeatureNameKey = "timeline.feature"
	DropReasonKey  = "timeline.drop_reason"
	ConnIDKey      = "timeline.conn_id"
	ResultKey      = "timeline.result"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RequestAttributes describes an inbound actor request. Empty fields are
// omitted.
func RequestAttributes(req model.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String(RequestTypeKey, req.Type))
	if req.TimelineUIID != "" {
		attrs = append(attrs, attribute.String(ClientIDKey, string(req.TimelineUIID)))
	}
	if req.ProducerID != "" {
		attrs = append(attrs, attribute.String(ProducerIDKey, string(req.ProducerID)))
	}
	if len(req.Features) > 0 {
		attrs = append(attrs, attribute.StringSlice(FeaturesKey, req.Features))
	}
	return attrs
}

// ErrorAttributes marks a span as failed with a typed error code.
func ErrorAttributes(code model.ErrorCode) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, string(code)),
	}
}
