// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package network

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
		ok   bool
		want map[string]interface{}
	}{
		{name: "missing url", data: map[string]interface{}{"method": "get"}, ok: false},
		{name: "blank url", data: map[string]interface{}{"url": "  "}, ok: false},
		{name: "url only", data: map[string]interface{}{"url": "http://x"}, ok: true, want: map[string]interface{}{"url": "http://x"}},
		{
			name: "method upper-cased",
			data: map[string]interface{}{"url": "http://x", "method": "post", "status": 201.0},
			ok:   true,
			want: map[string]interface{}{"url": "http://x", "method": "POST", "status": 201.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := model.Event{Type: FeatureHTTPEvent, Data: tt.data}
			assert.Equal(t, tt.ok, normalize(&ev))
			if tt.ok {
				assert.Equal(t, tt.want, ev.Data)
			}
		})
	}
}

func TestNew(t *testing.T) {
	p := New(producerOptions())
	assert.Equal(t, model.NetworkProducer, p.ID())
	assert.Equal(t, []string{"HTTPEvent"}, p.Features())
	assert.False(t, p.Ingest(model.Event{Type: FeatureHTTPEvent, Data: map[string]interface{}{"url": "http://x"}}), "stopped producer must reject")
}
