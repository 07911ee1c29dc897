// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

func TestNewRegistry_BuiltinProducers(t *testing.T) {
	reg, err := NewRegistry(Options{})
	require.NoError(t, err)

	assert.Equal(t, []model.ProducerID{model.MemoryProducer, model.NetworkProducer, model.PageEventsProducer}, reg.Producers())

	features, ok := reg.Features(model.PageEventsProducer)
	require.True(t, ok)
	assert.Equal(t, []string{"PageEvent", "WindowEvent", "MouseEvent", "KeyboardEvent"}, features)

	require.NoError(t, reg.Validate(model.NetworkProducer, []string{"HTTPEvent"}))
	require.NoError(t, reg.Validate(model.MemoryProducer, []string{"MemoryEvent", "GCEvent"}))

	for _, id := range reg.Producers() {
		factory, ok := reg.Factory(id)
		require.True(t, ok)
		p, err := factory()
		require.NoError(t, err)
		assert.Equal(t, id, p.ID())
	}
}

func TestRegister_Twice(t *testing.T) {
	reg, err := NewRegistry(Options{})
	require.NoError(t, err)
	require.Error(t, Register(reg, Options{}))
}
