// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package memory

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/producer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSampler_EmitsMemoryAndGCEvents(t *testing.T) {
	var calls atomic.Uint32
	read := func() runtime.MemStats {
		n := calls.Add(1)
		// NumGC advances on every other sample.
		return runtime.MemStats{HeapAlloc: uint64(n) * 1024, NumGC: n / 2}
	}

	p := New(producer.Options{}, 5*time.Millisecond, read)
	var (
		mu     sync.Mutex
		events []model.Event
	)
	require.NoError(t, p.Start(context.Background(), func(ev model.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		var mem, gc int
		for _, ev := range events {
			switch ev.Type {
			case FeatureMemoryEvent:
				mem++
			case FeatureGCEvent:
				gc++
			}
		}
		return mem >= 3 && gc >= 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, p.Stop())

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range events {
		assert.Equal(t, model.MemoryProducer, ev.Producer)
		if ev.Type == FeatureMemoryEvent {
			assert.Contains(t, ev.Data, "heapAlloc")
		}
	}
}

func TestNew_ZeroIntervalDisablesSampler(t *testing.T) {
	var calls atomic.Uint32
	p := New(producer.Options{}, 0, func() runtime.MemStats {
		calls.Add(1)
		return runtime.MemStats{}
	})
	require.NoError(t, p.Start(context.Background(), func(model.Event) {}))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Stop())

	assert.Zero(t, calls.Load())
	assert.Equal(t, []string{"MemoryEvent", "GCEvent"}, p.Features())
}
