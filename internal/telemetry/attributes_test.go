// SPDX-License-Identifier: MIT
package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

func TestRequestAttributes(t *testing.T) {
	tests := []struct {
		name    string
		req     model.Request
		wantLen int
	}{
		{
			name:    "ping",
			req:     model.Request{Type: "ping"},
			wantLen: 1,
		},
		{
			name: "start producer",
			req: model.Request{
				Type:         "startProducer",
				TimelineUIID: "ui-1",
				ProducerID:   model.NetworkProducer,
				Features:     []string{"HTTPEvent"},
			},
			wantLen: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := RequestAttributes(tt.req)
			if len(attrs) != tt.wantLen {
				t.Fatalf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}
			verifyAttribute(t, attrs, RequestTypeKey, tt.req.Type)
		})
	}
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes(model.CodeUINotRegistered)
	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, ErrorTypeKey, "UINotRegistered")
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if got := a.Value.AsString(); got != want {
				t.Errorf("Attribute %s = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
