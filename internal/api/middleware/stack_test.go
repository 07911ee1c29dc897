// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/timelinesink/internal/log"
)

func TestStack_RecoversPanics(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestStack_PropagatesRequestID(t *testing.T) {
	r := NewRouter(StackConfig{EnableMetrics: true, EnableLogging: true})
	var seen string
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	r := NewRouter(StackConfig{EnableCORS: true, AllowedOrigins: []string{"https://app.example"}})
	r.Post("/v1/ingest/x", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/ingest/x", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/ingest/x", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, OriginAllowed(nil, ""))
	assert.False(t, OriginAllowed(nil, "https://a"))
	assert.True(t, OriginAllowed([]string{"https://a"}, "https://a"))
	assert.True(t, OriginAllowed([]string{"*"}, "https://b"))
}

func TestShouldTrace(t *testing.T) {
	assert.False(t, shouldTrace(httptest.NewRequest(http.MethodGet, "/healthz", nil)))
	assert.True(t, shouldTrace(httptest.NewRequest(http.MethodGet, "/v1/status", nil)))

	upgrade := httptest.NewRequest(http.MethodGet, "/v1/timeline", nil)
	upgrade.Header.Set("Upgrade", "websocket")
	assert.False(t, shouldTrace(upgrade))
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestStatusWriter_Hijack(t *testing.T) {
	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	sw := newStatusWriter(rec)

	_, _, err := sw.Hijack()
	require.NoError(t, err)
	assert.True(t, rec.hijacked)
	assert.Equal(t, http.StatusSwitchingProtocols, sw.status)

	plain := newStatusWriter(httptest.NewRecorder())
	_, _, err = plain.Hijack()
	assert.Error(t, err)
}
