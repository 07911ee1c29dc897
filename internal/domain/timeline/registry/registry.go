// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package registry holds the static producer → feature metadata used to
// validate enable/disable requests.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/ports"
)

type entry struct {
	features map[string]struct{}
	ordered  []string
	factory  ports.ProducerFactory
}

// Registry maps producer IDs to their feature sets and factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[model.ProducerID]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[model.ProducerID]*entry)}
}

// Register adds a producer. Registering the same ID twice is an error.
func (r *Registry) Register(id model.ProducerID, features []string, factory ports.ProducerFactory) error {
	if id == "" {
		return fmt.Errorf("register producer: empty id")
	}
	if factory == nil {
		return fmt.Errorf("register producer %q: nil factory", id)
	}
	e := &entry{features: make(map[string]struct{}, len(features)), factory: factory}
	for _, f := range features {
		if f == "" {
			return fmt.Errorf("register producer %q: empty feature name", id)
		}
		if _, dup := e.features[f]; dup {
			continue
		}
		e.features[f] = struct{}{}
		e.ordered = append(e.ordered, f)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("register producer %q: already registered", id)
	}
	r.entries[id] = e
	return nil
}

// MustRegister is Register for static wiring.
func (r *Registry) MustRegister(id model.ProducerID, features []string, factory ports.ProducerFactory) {
	if err := r.Register(id, features, factory); err != nil {
		panic(err)
	}
}

// Has reports whether the producer is known.
func (r *Registry) Has(id model.ProducerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Features returns the producer's features in registration order.
func (r *Registry) Features(id model.ProducerID) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), e.ordered...), true
}

// Producers returns every registered ID, sorted.
func (r *Registry) Producers() []model.ProducerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ProducerID, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Factory returns the producer's factory.
func (r *Registry) Factory(id model.ProducerID) (ports.ProducerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.factory, true
}

// Validate checks a producer and a list of its features. The first failure
// is returned as a typed *model.Error.
func (r *Registry) Validate(id model.ProducerID, features []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return model.UnknownProducer(id)
	}
	for _, f := range features {
		if _, ok := e.features[f]; !ok {
			return model.UnknownFeature(id, f)
		}
	}
	return nil
}

// ValidateConfig checks every producer and feature a session config names.
func (r *Registry) ValidateConfig(cfg model.SessionConfig) error {
	for _, p := range cfg.Producers {
		if err := r.Validate(p, nil); err != nil {
			return err
		}
	}
	for _, k := range cfg.Features {
		if err := r.Validate(k.Producer, []string{k.Feature}); err != nil {
			return err
		}
	}
	return nil
}
