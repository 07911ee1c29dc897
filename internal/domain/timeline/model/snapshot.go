// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// Snapshot is a point-in-time view of the sink state.
type Snapshot struct {
	Initiated        bool         `json:"initiated"`
	Active           bool         `json:"active"`
	RegisteredUI     []ClientID   `json:"registeredUI"`
	StartedProducers []ProducerID `json:"startedProducers"`
	LoadedProducers  []ProducerID `json:"loadedProducers"`
	EnabledFeatures  []string     `json:"enabledFeatures"`
}
