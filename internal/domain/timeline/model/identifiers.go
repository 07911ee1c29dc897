// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"fmt"
	"sort"
	"strings"
)

// ProducerID is the stable identifier of a producer module.
type ProducerID string

const (
	NetworkProducer    ProducerID = "NetworkProducer"
	PageEventsProducer ProducerID = "PageEventsProducer"
	MemoryProducer     ProducerID = "MemoryProducer"
)

// ClientID identifies a timeline UI (the timelineUIId on the wire).
type ClientID string

// FeatureKey is a (producer, feature) pair. It is only a key into the
// enabled-feature set, never an entity of its own.
type FeatureKey struct {
	Producer ProducerID
	Feature  string
}

// String renders the key in the preference format "Producer:Feature".
func (k FeatureKey) String() string {
	return string(k.Producer) + ":" + k.Feature
}

// ParseFeatureKey parses "Producer:Feature".
func ParseFeatureKey(raw string) (FeatureKey, error) {
	raw = strings.TrimSpace(raw)
	i := strings.Index(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return FeatureKey{}, fmt.Errorf("invalid feature key %q: want Producer:Feature", raw)
	}
	return FeatureKey{Producer: ProducerID(raw[:i]), Feature: raw[i+1:]}, nil
}

// SortFeatureKeys orders keys by producer then feature.
func SortFeatureKeys(keys []FeatureKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Producer != keys[j].Producer {
			return keys[i].Producer < keys[j].Producer
		}
		return keys[i].Feature < keys[j].Feature
	})
}
