// Package metrics provides Prometheus collectors for the drugbase API:
//   - http_request_total / http_request_duration_seconds / http_request_in_flight
//   - store_query_duration_seconds and store_query_errors_total per operation
//   - store_retries_total for transient storage failures
//   - search_cache_requests_total with hit/miss results
//   - ingest_rows_total and ingest_last_success_timestamp_seconds
//
// All collectors are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (client IPs currently tracked)",
		},
	)

	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Store operation latency including retries",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	StoreQueryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Store operations that returned an error",
		},
		[]string{"operation"},
	)

	StoreRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_retries_total",
			Help: "Store operations retried after a transient failure",
		},
		[]string{"operation"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_requests_total",
			Help: "Search cache lookups by result",
		},
		[]string{"query", "result"},
	)

	IngestRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Rows inserted by ingestion runs",
		},
		[]string{"table"},
	)

	IngestLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_last_success_timestamp_seconds",
			Help: "Unix time of the last successful ingestion run",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(StoreQueryDuration)
	prometheus.MustRegister(StoreQueryErrors)
	prometheus.MustRegister(StoreRetries)
	prometheus.MustRegister(CacheRequests)
	prometheus.MustRegister(IngestRows)
	prometheus.MustRegister(IngestLastSuccess)
}

// ObserveQuery records the outcome of one store operation
func ObserveQuery(operation string, elapsed time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// CacheLookup records a cache hit or miss for a search query kind
func CacheLookup(query string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(query, result).Inc()
}
