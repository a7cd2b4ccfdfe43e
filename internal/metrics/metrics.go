package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeshare_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeshare_ws_connections",
			Help: "Open websocket connections",
		},
	)

	SubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeshare_subscriptions_active",
			Help: "Active path subscriptions across all connections",
		},
	)

	SnapshotsPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeshare_snapshots_pushed_total",
			Help: "Total snapshot frames fanned out to subscribers",
		},
	)

	// Business metrics
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_writes_total",
			Help: "Total accepted store writes",
		},
		[]string{"kind"}, // "code", "image_add", "image_delete"
	)

	// Fanout metrics
	FanoutEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_fanout_events_total",
			Help: "Cross-instance fanout events",
		},
		[]string{"direction"}, // "sent" or "received"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
