// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog registers the built-in producers in a feature registry.
package catalog

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/registry"
	"github.com/ManuGH/timelinesink/internal/producer"
	"github.com/ManuGH/timelinesink/internal/producer/memory"
	"github.com/ManuGH/timelinesink/internal/producer/network"
	"github.com/ManuGH/timelinesink/internal/producer/pageevents"
)

type Options struct {
	BufferSize     int
	MemoryInterval time.Duration
	Logger         *zerolog.Logger
}

// Register adds NetworkProducer, PageEventsProducer and MemoryProducer.
func Register(reg *registry.Registry, opts Options) error {
	base := producer.Options{BufferSize: opts.BufferSize, Logger: opts.Logger}

	entries := []struct {
		id       model.ProducerID
		features []string
		factory  ports.ProducerFactory
	}{
		{model.NetworkProducer, network.Features, func() (ports.Producer, error) {
			return network.New(base), nil
		}},
		{model.PageEventsProducer, pageevents.Features, func() (ports.Producer, error) {
			return pageevents.New(base), nil
		}},
		{model.MemoryProducer, memory.Features, func() (ports.Producer, error) {
			return memory.New(base, opts.MemoryInterval, nil), nil
		}},
	}
	for _, e := range entries {
		if err := reg.Register(e.id, e.features, e.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in producers.
func NewRegistry(opts Options) (*registry.Registry, error) {
	reg := registry.New()
	if err := Register(reg, opts); err != nil {
		return nil, err
	}
	return reg, nil
}
