// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "strings"

// RequestType is the tagged variant of an inbound request.
type RequestType int

const (
	RequestUnknown RequestType = iota
	RequestPing
	RequestInit
	RequestDestroy
	RequestEnableFeatures
	RequestDisableFeatures
	RequestStartProducer
	RequestStopProducer
	RequestStartRecording
	RequestStopRecording
)

var requestNames = map[RequestType]string{
	RequestPing:            "ping",
	RequestInit:            "init",
	RequestDestroy:         "destroy",
	RequestEnableFeatures:  "enableFeatures",
	RequestDisableFeatures: "disableFeatures",
	RequestStartProducer:   "startProducer",
	RequestStopProducer:    "stopProducer",
	RequestStartRecording:  "startRecording",
	RequestStopRecording:   "stopRecording",
}

var requestTypes = func() map[string]RequestType {
	out := make(map[string]RequestType, len(requestNames))
	for t, n := range requestNames {
		out[n] = t
	}
	return out
}()

func (t RequestType) String() string {
	if n, ok := requestNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseRequestType maps a wire name to its variant. Unknown names yield
// RequestUnknown and false.
func ParseRequestType(name string) (RequestType, bool) {
	t, ok := requestTypes[name]
	return t, ok
}

// RequestTypes returns every known request variant in declaration order.
func RequestTypes() []RequestType {
	return []RequestType{
		RequestPing,
		RequestInit,
		RequestDestroy,
		RequestEnableFeatures,
		RequestDisableFeatures,
		RequestStartProducer,
		RequestStopProducer,
		RequestStartRecording,
		RequestStopRecording,
	}
}

// Request is the inbound wire message.
type Request struct {
	Type            string     `json:"type"`
	ProducerID      ProducerID `json:"producerId,omitempty"`
	Features        []string   `json:"features,omitempty"`
	TimelineUIID    ClientID   `json:"timelineUIId,omitempty"`
	ActiveProducers []string   `json:"activeProducers,omitempty"`
	ActiveFeatures  []string   `json:"activeFeatures,omitempty"`
}

// Kind resolves the request variant.
func (r Request) Kind() RequestType {
	t, _ := ParseRequestType(strings.TrimSpace(r.Type))
	return t
}

// SessionConfig reads the optional recording configuration carried by a
// startRecording request.
func (r Request) SessionConfig() (SessionConfig, error) {
	return ParseSessionConfig(r.ActiveProducers, r.ActiveFeatures)
}

// SessionConfig is the initial producer/feature set applied by startListening.
type SessionConfig struct {
	Producers []ProducerID
	Features  []FeatureKey
}

// Empty reports whether the config names nothing.
func (c SessionConfig) Empty() bool {
	return len(c.Producers) == 0 && len(c.Features) == 0
}

// ParseSessionConfig builds a config from the preference representation:
// producer IDs and "Producer:Feature" keys.
func ParseSessionConfig(producers, features []string) (SessionConfig, error) {
	var cfg SessionConfig
	for _, p := range producers {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cfg.Producers = append(cfg.Producers, ProducerID(p))
	}
	for _, f := range features {
		if strings.TrimSpace(f) == "" {
			continue
		}
		key, err := ParseFeatureKey(f)
		if err != nil {
			return SessionConfig{}, &Error{Code: CodeBadRequest, Message: err.Error()}
		}
		cfg.Features = append(cfg.Features, key)
	}
	return cfg, nil
}

// ProducerSet returns every producer the config touches, including the
// producers of its features, without duplicates and in first-seen order.
func (c SessionConfig) ProducerSet() []ProducerID {
	seen := make(map[ProducerID]struct{}, len(c.Producers))
	var out []ProducerID
	add := func(id ProducerID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, p := range c.Producers {
		add(p)
	}
	for _, f := range c.Features {
		add(f.Producer)
	}
	return out
}

// Strings renders the config back into preference form.
func (c SessionConfig) Strings() (producers, features []string) {
	for _, p := range c.Producers {
		producers = append(producers, string(p))
	}
	for _, f := range c.Features {
		features = append(features, f.String())
	}
	return producers, features
}
