// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recording tracks, for the lifetime of one recording, which
// producers are started and which features are enabled on each.
//
// Session is not safe for concurrent use; the sink serializes access.
package recording

import (
	"sort"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

// SessionOwner is the subscriber used for features enabled by startListening.
// Session-wide features are delivered to every registered client.
const SessionOwner model.ClientID = ""

type Session struct {
	active  bool
	started map[model.ProducerID]struct{}
	subs    map[model.FeatureKey]map[model.ClientID]struct{}
}

func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset clears every started producer and enabled feature and marks the
// session inactive.
func (s *Session) Reset() {
	s.active = false
	s.started = make(map[model.ProducerID]struct{})
	s.subs = make(map[model.FeatureKey]map[model.ClientID]struct{})
}

func (s *Session) Active() bool { return s.active }

func (s *Session) SetActive(active bool) { s.active = active }

func (s *Session) MarkStarted(id model.ProducerID) { s.started[id] = struct{}{} }

func (s *Session) MarkStopped(id model.ProducerID) { delete(s.started, id) }

func (s *Session) IsStarted(id model.ProducerID) bool {
	_, ok := s.started[id]
	return ok
}

// StartedProducers returns the started set, sorted.
func (s *Session) StartedProducers() []model.ProducerID {
	out := make([]model.ProducerID, 0, len(s.started))
	for id := range s.started {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enable subscribes owner to each feature of producer. Enabling an already
// enabled pair is a no-op.
func (s *Session) Enable(owner model.ClientID, producer model.ProducerID, features []string) {
	for _, f := range features {
		key := model.FeatureKey{Producer: producer, Feature: f}
		owners, ok := s.subs[key]
		if !ok {
			owners = make(map[model.ClientID]struct{})
			s.subs[key] = owners
		}
		owners[owner] = struct{}{}
	}
}

// Disable removes owner's own subscription to each pair. Session-wide entries
// belong to the recording and are only cleared by Reset. Unknown pairs are
// ignored.
func (s *Session) Disable(owner model.ClientID, producer model.ProducerID, features []string) {
	for _, f := range features {
		key := model.FeatureKey{Producer: producer, Feature: f}
		owners, ok := s.subs[key]
		if !ok {
			continue
		}
		delete(owners, owner)
		if len(owners) == 0 {
			delete(s.subs, key)
		}
	}
}

// DropOwner removes every subscription held by owner.
func (s *Session) DropOwner(owner model.ClientID) {
	for key, owners := range s.subs {
		delete(owners, owner)
		if len(owners) == 0 {
			delete(s.subs, key)
		}
	}
}

// DropProducer removes every subscription on the producer.
func (s *Session) DropProducer(producer model.ProducerID) {
	for key := range s.subs {
		if key.Producer == producer {
			delete(s.subs, key)
		}
	}
}

// Enabled reports whether any subscriber has the pair enabled.
func (s *Session) Enabled(key model.FeatureKey) bool {
	_, ok := s.subs[key]
	return ok
}

// Wants reports whether client should receive events for key, either through
// its own subscription or a session-wide one.
func (s *Session) Wants(client model.ClientID, key model.FeatureKey) bool {
	owners, ok := s.subs[key]
	if !ok {
		return false
	}
	if _, ok := owners[SessionOwner]; ok {
		return true
	}
	_, ok = owners[client]
	return ok
}

// EnabledFeatures returns the union of every subscriber's pairs, sorted.
func (s *Session) EnabledFeatures() []model.FeatureKey {
	out := make([]model.FeatureKey, 0, len(s.subs))
	for key := range s.subs {
		out = append(out, key)
	}
	model.SortFeatureKeys(out)
	return out
}

// OwnerFeatures returns the features owner has enabled on producer, sorted.
func (s *Session) OwnerFeatures(owner model.ClientID, producer model.ProducerID) []string {
	var out []string
	for key, owners := range s.subs {
		if key.Producer != producer {
			continue
		}
		if _, ok := owners[owner]; ok {
			out = append(out, key.Feature)
		}
	}
	sort.Strings(out)
	return out
}
