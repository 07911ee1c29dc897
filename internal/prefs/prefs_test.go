// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOpen_InMemoryUsesDefaults(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	assert.Equal(t, model.SessionConfig{
		Producers: []model.ProducerID{model.NetworkProducer, model.PageEventsProducer},
		Features:  []model.FeatureKey{{Producer: model.PageEventsProducer, Feature: "PageEvent"}},
	}, s.SessionConfig())
	require.NoError(t, s.Save())
	require.NoError(t, s.Reload())
	require.NoError(t, s.Watch(context.Background()))
}

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s.Get())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "open must not create the file")
}

func TestOpen_RejectsUnknownKeysAndBadFeatures(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("activeProducers: []\nrecordOnStart: true\n"), 0o600))
	_, err := Open(unknown)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("activeFeatures: [\"NoColon\"]\n"), 0o600))
	_, err = Open(bad)
	require.Error(t, err)
}

func TestRemember_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetUI("zoom", 2))

	cfg := model.SessionConfig{
		Producers: []model.ProducerID{model.MemoryProducer},
		Features:  []model.FeatureKey{{Producer: model.MemoryProducer, Feature: "GCEvent"}},
	}
	require.NoError(t, s.Remember(cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "MemoryProducer:GCEvent"))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reopened.SessionConfig())
	assert.Equal(t, 2, reopened.Get().UI["zoom"])
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	p := s.Get()
	p.ActiveProducers[0] = "Mutated"
	assert.Equal(t, string(model.NetworkProducer), s.Get().ActiveProducers[0])
}

func TestReload_KeepsCurrentOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("activeProducers: [MemoryProducer]\nactiveFeatures: []\n"), 0o600))
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("activeProducers: [\n"), 0o600))
	require.Error(t, s.Reload())
	assert.Equal(t, []string{"MemoryProducer"}, s.Get().ActiveProducers)
}

func TestWatch_ReloadsOnExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("activeProducers: [NetworkProducer]\n"), 0o600))
	s, err := Open(path)
	require.NoError(t, err)

	updates := make(chan Prefs, 4)
	s.Subscribe(updates)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watch(ctx, 10*time.Millisecond) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register the directory.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("activeProducers: [MemoryProducer]\n"), 0o600)
		select {
		case p := <-updates:
			return len(p.ActiveProducers) == 1 && p.ActiveProducers[0] == "MemoryProducer"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []model.ProducerID{model.MemoryProducer}, s.SessionConfig().Producers)
}
