package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcn_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Dashboard aggregation
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcn_aggregation_duration_seconds",
			Help:    "Duration of dashboard aggregation queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	AggregationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcn_aggregation_errors_total",
			Help: "Total number of failed dashboard aggregation queries",
		},
		[]string{"view"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcn_dashboard_cache_hits_total",
			Help: "Dashboard responses served from cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcn_dashboard_cache_misses_total",
			Help: "Dashboard responses computed from the database",
		},
	)

	// YouTube sync
	SyncChannels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcn_sync_channels_total",
			Help: "Channels processed by the metrics sync, by outcome",
		},
		[]string{"outcome"}, // "success", "error", "empty", "fallback"
	)

	SyncRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcn_sync_metric_rows_total",
			Help: "Channel-day metric rows upserted by the sync",
		},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcn_circuit_breaker_state",
			Help: "State of outbound API circuit breakers",
		},
		[]string{"name"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mcn_sync_duration_seconds",
			Help:    "Duration of a full metrics sync run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// RecordAggregation records the outcome of one aggregation view query.
func RecordAggregation(view string, d time.Duration, err error) {
	AggregationDuration.WithLabelValues(view).Observe(d.Seconds())
	if err != nil {
		AggregationErrors.WithLabelValues(view).Inc()
	}
}

// Middleware observes request latency labelled by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
