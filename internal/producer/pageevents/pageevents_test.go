// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package pageevents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/producer"
)

func TestProducer_IngestRequiresName(t *testing.T) {
	p := New(producer.Options{})
	var (
		mu  sync.Mutex
		got []model.Event
	)
	require.NoError(t, p.Start(context.Background(), func(ev model.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}))
	defer func() { require.NoError(t, p.Stop()) }()

	assert.False(t, p.Ingest(model.Event{Type: FeaturePageEvent}))
	assert.False(t, p.Ingest(model.Event{Type: "ScrollEvent", Data: map[string]interface{}{"name": "scroll"}}))
	assert.True(t, p.Ingest(model.Event{Type: FeaturePageEvent, Data: map[string]interface{}{"name": "load"}}))
	assert.True(t, p.Ingest(model.Event{Type: FeatureMouseEvent, Data: map[string]interface{}{"name": "click"}}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.PageEventsProducer, got[0].Producer)
	assert.Equal(t, FeaturePageEvent, got[0].Type)
	assert.Equal(t, FeatureMouseEvent, got[1].Type)
}
