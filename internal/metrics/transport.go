// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_ws_connections",
		Help: "Number of open timeline WebSocket connections",
	})

	ConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_ws_connections_total",
		Help: "Total number of WebSocket upgrade attempts by result",
	}, []string{"result"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_ratelimit_exceeded_total",
		Help: "Total number of requests rejected by a rate limit",
	}, []string{"scope"})
)

// IncConnection records a WebSocket upgrade attempt.
func IncConnection(result string) {
	ConnectionsTotal.WithLabelValues(orUnknown(result)).Inc()
}

// IncRateLimited records a request rejected by the given limiter scope.
func IncRateLimited(scope string) {
	RateLimitedTotal.WithLabelValues(orUnknown(scope)).Inc()
}
