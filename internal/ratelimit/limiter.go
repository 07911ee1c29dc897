// SPDX-License-Identifier: MIT

// Package ratelimit throttles inbound sink actor requests, globally and per
// connection.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ManuGH/timelinesink/internal/metrics"
)

const (
	ScopeGlobal     = "global"
	ScopeConnection = "connection"
)

// Config holds rate limiting configuration.
type Config struct {
	// GlobalRate bounds requests per second across all connections. Zero
	// disables the global limit.
	GlobalRate  rate.Limit
	GlobalBurst int

	// PerConnRate bounds requests per second on one connection.
	PerConnRate  rate.Limit
	PerConnBurst int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		GlobalRate:   500,
		GlobalBurst:  1000,
		PerConnRate:  50,
		PerConnBurst: 100,
	}
}

// Limiter tracks one token bucket per connection plus a shared one.
type Limiter struct {
	config Config

	global  *rate.Limiter
	mu      sync.Mutex
	perConn map[string]*rate.Limiter
}

func New(config Config) *Limiter {
	l := &Limiter{
		config:  config,
		perConn: make(map[string]*rate.Limiter),
	}
	if config.GlobalRate > 0 {
		l.global = rate.NewLimiter(config.GlobalRate, config.GlobalBurst)
	}
	return l
}

// Allow reports whether a request on connID may proceed.
func (l *Limiter) Allow(connID string) bool {
	if l.global != nil && !l.global.Allow() {
		metrics.IncRateLimited(ScopeGlobal)
		return false
	}
	if l.config.PerConnRate <= 0 {
		return true
	}
	if !l.connLimiter(connID).Allow() {
		metrics.IncRateLimited(ScopeConnection)
		return false
	}
	return true
}

func (l *Limiter) connLimiter(connID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.perConn[connID]
	if !ok {
		lim = rate.NewLimiter(l.config.PerConnRate, l.config.PerConnBurst)
		l.perConn[connID] = lim
	}
	return lim
}

// Forget drops the bucket of a closed connection.
func (l *Limiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.perConn, connID)
}

// Tracked returns the number of connection buckets held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perConn)
}

// GetClientIP extracts the real client IP from the request.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
