package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flock_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// InteractionsTotal counts interaction engine calls by kind and outcome.
	InteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_interactions_total",
		Help: "Interaction operations by kind (like, retweet, ...) and outcome",
	}, []string{"kind", "outcome"})

	// NotificationsPublished counts notification fan-out attempts.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_notifications_published_total",
		Help: "Notifications published to Redis by type and result",
	}, []string{"type", "result"})

	// CacheLookups counts cache-aside lookups by cache and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_cache_lookups_total",
		Help: "Cache-aside lookups by cache and result",
	}, []string{"cache", "result"})

	// ClassifierLatency records emotion classifier round trips.
	ClassifierLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flock_classifier_latency_seconds",
		Help:    "Emotion classifier latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"result"})

	// ClassifierBreakerState is 0 closed, 1 half-open, 2 open.
	ClassifierBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flock_classifier_breaker_state",
		Help: "Emotion classifier circuit breaker state (0 closed, 1 half-open, 2 open)",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flock_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordInteraction increments InteractionsTotal with an outcome derived from err.
func RecordInteraction(kind string, err error, classify func(error) string) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if classify != nil {
			outcome = classify(err)
		}
	}
	InteractionsTotal.WithLabelValues(kind, outcome).Inc()
}
