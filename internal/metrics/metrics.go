// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP transport
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_http_request_duration_seconds",
			Help:    "Duration of recommendation HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_recommendations_served_total",
			Help: "Total number of recommendation entries returned, by query mode",
		},
		[]string{"mode"},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_recommendation_errors_total",
			Help: "Total number of failed recommendation requests, by query mode and error kind",
		},
		[]string{"mode", "kind"},
	)

	// Text encoder
	EncoderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_encoder_duration_seconds",
			Help:    "Duration of upstream text encoder calls in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	EncoderErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_encoder_errors_total",
			Help: "Total number of failed upstream text encoder calls",
		},
	)

	EncoderCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_encoder_cache_hits_total",
			Help: "Total number of text queries answered from the vector cache",
		},
	)

	EncoderCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_encoder_cache_misses_total",
			Help: "Total number of text queries that required an encoder call",
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookrec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Snapshots
	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_snapshot_loads_total",
			Help: "Total number of snapshot load attempts, by snapshot and result",
		},
		[]string{"snapshot", "result"},
	)

	SnapshotItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookrec_snapshot_items",
			Help: "Number of items in the loaded snapshot",
		},
		[]string{"snapshot"},
	)
)

// ObserveRequest records one HTTP request.
func ObserveRequest(route string, status int, elapsed time.Duration) {
	RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveSnapshotLoad records a snapshot load attempt.
func ObserveSnapshotLoad(snapshot string, items int, err error) {
	if err != nil {
		SnapshotLoads.WithLabelValues(snapshot, "error").Inc()
		return
	}
	SnapshotLoads.WithLabelValues(snapshot, "ok").Inc()
	SnapshotItems.WithLabelValues(snapshot).Set(float64(items))
}
