// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recording

import (
	"testing"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
	"github.com/stretchr/testify/require"
)

var (
	pageEvent  = model.FeatureKey{Producer: model.PageEventsProducer, Feature: "PageEvent"}
	mouseEvent = model.FeatureKey{Producer: model.PageEventsProducer, Feature: "MouseEvent"}
)

func TestEnableDisableRoundTrip(t *testing.T) {
	s := NewSession()
	s.Enable("ui-1", model.PageEventsProducer, []string{"PageEvent"})
	before := s.EnabledFeatures()

	s.Enable("ui-1", model.PageEventsProducer, []string{"MouseEvent"})
	s.Disable("ui-1", model.PageEventsProducer, []string{"MouseEvent"})

	require.Equal(t, before, s.EnabledFeatures())
}

func TestWantsIsPerClient(t *testing.T) {
	s := NewSession()
	s.Enable("a", model.PageEventsProducer, []string{"PageEvent"})
	s.Enable("b", model.PageEventsProducer, []string{"MouseEvent"})

	require.True(t, s.Wants("a", pageEvent))
	require.False(t, s.Wants("a", mouseEvent))
	require.True(t, s.Wants("b", mouseEvent))
	require.False(t, s.Wants("b", pageEvent))
	require.Equal(t, []model.FeatureKey{mouseEvent, pageEvent}, s.EnabledFeatures())
}

func TestSessionWideFeatureReachesEveryClient(t *testing.T) {
	s := NewSession()
	s.Enable(SessionOwner, model.PageEventsProducer, []string{"PageEvent"})
	require.True(t, s.Wants("anyone", pageEvent))

	s.Disable("anyone", model.PageEventsProducer, []string{"PageEvent"})
	require.True(t, s.Enabled(pageEvent))
	require.True(t, s.Wants("other", pageEvent))
}

func TestEnableDisableRoundTripKeepsSessionWideFeature(t *testing.T) {
	s := NewSession()
	s.Enable(SessionOwner, model.PageEventsProducer, []string{"PageEvent"})
	before := s.EnabledFeatures()

	s.Enable("ui-1", model.PageEventsProducer, []string{"PageEvent"})
	s.Disable("ui-1", model.PageEventsProducer, []string{"PageEvent"})

	require.Equal(t, before, s.EnabledFeatures())
	require.True(t, s.Wants("ui-2", pageEvent))
}

func TestDisableUnknownPairIsIgnored(t *testing.T) {
	s := NewSession()
	s.Disable("ui-1", model.NetworkProducer, []string{"HTTPEvent"})
	require.Empty(t, s.EnabledFeatures())
}

func TestDropOwnerAndProducer(t *testing.T) {
	s := NewSession()
	s.Enable("a", model.PageEventsProducer, []string{"PageEvent", "MouseEvent"})
	s.Enable("b", model.PageEventsProducer, []string{"PageEvent"})
	s.Enable("b", model.NetworkProducer, []string{"HTTPEvent"})

	s.DropOwner("a")
	require.False(t, s.Enabled(mouseEvent))
	require.True(t, s.Enabled(pageEvent))
	require.Equal(t, []string{"PageEvent"}, s.OwnerFeatures("b", model.PageEventsProducer))

	s.DropProducer(model.PageEventsProducer)
	require.Equal(t, []model.FeatureKey{{Producer: model.NetworkProducer, Feature: "HTTPEvent"}}, s.EnabledFeatures())
}

func TestStartedAndReset(t *testing.T) {
	s := NewSession()
	s.MarkStarted(model.NetworkProducer)
	s.MarkStarted(model.MemoryProducer)
	s.SetActive(true)
	require.Equal(t, []model.ProducerID{model.MemoryProducer, model.NetworkProducer}, s.StartedProducers())

	s.MarkStopped(model.MemoryProducer)
	require.False(t, s.IsStarted(model.MemoryProducer))

	s.Reset()
	require.False(t, s.Active())
	require.Empty(t, s.StartedProducers())
}
