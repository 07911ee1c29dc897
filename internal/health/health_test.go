// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/timelinesink/internal/config"
	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

func TestNewManager(t *testing.T) {
	m := NewManager("v1.2.3")
	assert.NotNil(t, m)
	assert.Equal(t, "v1.2.3", m.version)
	assert.Empty(t, m.checkers)
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	// Non-verbose: no checks included
	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["healthy"].Status)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Health_UnhealthyWinsOverDegraded(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "unhealthy", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		wantReady bool
	}{
		{"healthy", StatusHealthy, true},
		{"degraded", StatusDegraded, true},
		{"unhealthy", StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(&mockChecker{name: "test", status: tt.status})

			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.status, resp.Status)
			assert.Len(t, resp.Checks, 1)
		})
	}
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "test", status: StatusUnhealthy})

	req := httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil)
	w := httptest.NewRecorder()
	m.ServeHealth(w, req)

	// Liveness stays 200 even with unhealthy components.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "test")
}

func TestManager_ServeReady(t *testing.T) {
	tests := []struct {
		name           string
		checker        Checker
		expectedStatus int
		expectedReady  bool
	}{
		{"healthy", &mockChecker{name: "test", status: StatusHealthy}, http.StatusOK, true},
		{"degraded", &mockChecker{name: "test", status: StatusDegraded}, http.StatusOK, true},
		{"unhealthy", &mockChecker{name: "test", status: StatusUnhealthy}, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(tt.checker)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			m.ServeReady(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedReady, resp.Ready)
		})
	}
}

func TestSinkChecker(t *testing.T) {
	s := &fakeSink{snap: model.Snapshot{
		Active:           true,
		RegisteredUI:     []model.ClientID{"a", "b"},
		StartedProducers: []model.ProducerID{"NetworkProducer"},
	}}
	c := NewSinkChecker(s)
	assert.Equal(t, "sink", c.Name())

	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "2 clients, 1 producers started, recording=true", res.Message)

	s.closed = true
	res = c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "sink closed", res.Error)
}

func TestCatalogChecker(t *testing.T) {
	var ids []model.ProducerID
	c := NewCatalogChecker(func() []model.ProducerID { return ids })
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	ids = []model.ProducerID{"NetworkProducer", "MemoryProducer"}
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "2 producers registered", res.Message)
}

func TestFileChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prefs.yaml")
	require.NoError(t, os.WriteFile(file, []byte("activeProducers: []\n"), 0o600))

	tests := []struct {
		name string
		path string
		want Status
	}{
		{"not configured", "", StatusHealthy},
		{"exists", file, StatusHealthy},
		{"missing", filepath.Join(dir, "missing.yaml"), StatusDegraded},
		{"directory", dir, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewFileChecker("prefs", tt.path)
			assert.Equal(t, "prefs", c.Name())
			assert.Equal(t, tt.want, c.Check(context.Background()).Status)
		})
	}
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Prefs.Path = filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	bad := cfg
	bad.API.ListenAddr = "8090"
	require.Error(t, PerformStartupChecks(context.Background(), bad))

	bad = cfg
	bad.Metrics.ListenAddr = ":99999"
	require.Error(t, PerformStartupChecks(context.Background(), bad))

	bad = cfg
	bad.Prefs.Path = filepath.Join(t.TempDir(), "missing", "prefs.yaml")
	err := PerformStartupChecks(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

type fakeSink struct {
	closed bool
	snap   model.Snapshot
}

func (f *fakeSink) Closed() bool             { return f.closed }
func (f *fakeSink) Snapshot() model.Snapshot { return f.snap }
