// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package memory samples heap statistics while started and also relays
// memory events pushed by the browser agent.
package memory

import (
	"context"
	"runtime"
	"time"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/producer"
)

const (
	FeatureMemoryEvent = "MemoryEvent"
	FeatureGCEvent     = "GCEvent"

	DefaultInterval = time.Second
)

var Features = []string{FeatureMemoryEvent, FeatureGCEvent}

// ReadStats is replaceable in tests.
type ReadStats func() runtime.MemStats

func readRuntime() runtime.MemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms
}

// Producer is the MemoryProducer.
type Producer struct {
	*producer.Base
}

// New builds the producer. A non-positive interval disables the sampler.
func New(opts producer.Options, interval time.Duration, read ReadStats) *Producer {
	if read == nil {
		read = readRuntime
	}
	if interval > 0 {
		opts.Source = sampler(interval, read)
	}
	return &Producer{Base: producer.NewBase(model.MemoryProducer, Features, opts)}
}

func sampler(interval time.Duration, read ReadStats) producer.Source {
	return func(ctx context.Context, publish func(model.Event) bool) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastGC := read().NumGC
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				ms := read()
				publish(model.Event{
					Type: FeatureMemoryEvent,
					Time: now,
					Data: map[string]interface{}{
						"heapAlloc":   ms.HeapAlloc,
						"heapInuse":   ms.HeapInuse,
						"heapObjects": ms.HeapObjects,
						"sys":         ms.Sys,
					},
				})
				if ms.NumGC != lastGC {
					publish(model.Event{
						Type: FeatureGCEvent,
						Time: now,
						Data: map[string]interface{}{
							"numGC":        ms.NumGC,
							"collections":  ms.NumGC - lastGC,
							"pauseTotalNs": ms.PauseTotalNs,
						},
					})
					lastGC = ms.NumGC
				}
			}
		}
	}
}
