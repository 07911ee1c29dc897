// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFeatureKey(t *testing.T) {
	k, err := ParseFeatureKey("PageEventsProducer:PageEvent")
	require.NoError(t, err)
	require.Equal(t, FeatureKey{Producer: PageEventsProducer, Feature: "PageEvent"}, k)
	require.Equal(t, "PageEventsProducer:PageEvent", k.String())

	for _, bad := range []string{"", "NoColon", ":Feature", "Producer:"} {
		_, err := ParseFeatureKey(bad)
		require.Error(t, err, bad)
	}
}

func TestRequestTypeRoundTrip(t *testing.T) {
	require.Len(t, RequestTypes(), 9)
	for _, rt := range RequestTypes() {
		parsed, ok := ParseRequestType(rt.String())
		require.True(t, ok)
		require.Equal(t, rt, parsed)
	}
	_, ok := ParseRequestType("launchMissiles")
	require.False(t, ok)
	require.Equal(t, RequestUnknown, Request{Type: "nope"}.Kind())
}

func TestErrorMatchesSentinel(t *testing.T) {
	err := error(UnknownFeature(NetworkProducer, "Bogus"))
	require.True(t, errors.Is(err, ErrUnknownFeature))
	require.False(t, errors.Is(err, ErrUnknownProducer))

	cause := errors.New("boom")
	start := ProducerStartFailure(MemoryProducer, cause)
	require.ErrorIs(t, start, ErrProducerStartFailure)
	require.ErrorIs(t, start, cause)
	require.Equal(t, MemoryProducer, AsError(start).Producer)

	require.Equal(t, CodeBadRequest, AsError(errors.New("x")).Code)
	require.Nil(t, AsError(nil))
}

func TestEventPacketWireShape(t *testing.T) {
	p := NewEventPacket(SinkActorName, Event{
		Producer: NetworkProducer,
		Type:     "HTTPEvent",
		Data:     map[string]interface{}{"url": "http://x"},
	})
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"from":"dataSink","type":"HTTPEvent","message":{"url":"http://x"}}`, string(b))
}

func TestEventPacketCarriesEventTime(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	p := NewEventPacket(SinkActorName, Event{Type: "MemoryEvent", Time: at})
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"from":"dataSink","type":"MemoryEvent","message":{"time":1700000000123}}`, string(b))

	data := map[string]interface{}{"time": "page-clock"}
	p = NewEventPacket(SinkActorName, Event{Type: "PageEvent", Time: at, Data: data})
	require.Equal(t, map[string]interface{}{"time": "page-clock"}, p.Message)
}

func TestErrorPacketWireShape(t *testing.T) {
	p := NewErrorPacket(SinkActorName, RequestEnableFeatures, UINotRegistered("ui-9"))
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"from":"dataSink","type":"error","message":{"error":"UINotRegistered","message":"timeline ui \"ui-9\" is not registered","request":"enableFeatures"}}`, string(b))
}

func TestSessionConfigProducerSet(t *testing.T) {
	cfg, err := ParseSessionConfig(
		[]string{"NetworkProducer", " ", "PageEventsProducer"},
		[]string{"PageEventsProducer:PageEvent", "MemoryProducer:GCEvent"},
	)
	require.NoError(t, err)
	require.Equal(t, []ProducerID{NetworkProducer, PageEventsProducer, MemoryProducer}, cfg.ProducerSet())

	producers, features := cfg.Strings()
	require.Equal(t, []string{"NetworkProducer", "PageEventsProducer"}, producers)
	require.Equal(t, []string{"PageEventsProducer:PageEvent", "MemoryProducer:GCEvent"}, features)

	_, err = ParseSessionConfig(nil, []string{"broken"})
	require.ErrorIs(t, err, ErrBadRequest)
}
