// Package metrics exposes the gateway's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_ingest_requests_total",
			Help: "Total telemetry reports received, by pipeline outcome",
		},
		[]string{"outcome"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_ingest_duration_seconds",
			Help:    "Ingestion pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlaggedReadingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_flagged_readings_total",
			Help: "Accepted readings flagged for review by the anomaly check",
		},
	)

	NonceCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_nonce_cache_size",
			Help: "Nonces currently held by the replay guard",
		},
	)

	RateLimiterWindows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_rate_limiter_windows",
			Help: "Devices with a live rate-limit window",
		},
	)

	DashboardClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_dashboard_clients",
			Help: "Dashboard websocket subscribers currently connected",
		},
	)
)
