// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aqdash"

var (
	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "fetch_total",
		Help:      "Dataset fetches by result (cache_hit, downloaded, local, error).",
	}, []string{"dataset", "result"})

	SourceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent downloading a dataset.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"dataset"})

	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Dashboard queries by result (ok, empty, error).",
	}, []string{"dataset", "result"})

	IngestedReadings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_readings_total",
		Help:      "Live readings received over MQTT by result (ok, rejected, error).",
	}, []string{"dataset", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
