// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "time"

// Event is one timestamped item emitted by a producer. Type is the feature
// name the event belongs to; Data becomes the packet message.
type Event struct {
	Producer ProducerID
	Type     string
	Time     time.Time
	Data     map[string]interface{}
}

// Key returns the feature key the event is filtered by.
func (e Event) Key() FeatureKey {
	return FeatureKey{Producer: e.Producer, Feature: e.Type}
}
