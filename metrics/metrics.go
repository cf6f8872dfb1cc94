// Package metrics provides Prometheus metrics for the prescription service.
// HTTP traffic is tracked by the Metrics middleware:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - http_response_size_bytes: Histogram with method and path labels
//
// The pipeline records how utterances resolve, which dosing fields are
// found, and the state of the catalog. All metrics are registered with the
// Prometheus default registry during package initialization.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response body size",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"method", "path"},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_resolutions_total",
			Help: "Medicine name resolutions by outcome",
		},
		[]string{"status"},
	)

	ResolutionConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prescription_resolution_confidence",
			Help:    "Best similarity score of each resolution",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	ExtractedFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_fields_extracted_total",
			Help: "Dosing fields found in transcripts",
		},
		[]string{"field"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prescription_pipeline_duration_seconds",
			Help:    "Time to turn one input into a prescription record",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 15},
		},
		[]string{"source"},
	)

	CatalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_entries",
			Help: "Number of medicines in the current catalog snapshot",
		},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reload attempts by result",
		},
		[]string{"result"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_deliveries_total",
			Help: "Prescription deliveries by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(HTTPResponseSize)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(ResolutionConfidence)
	prometheus.MustRegister(ExtractedFieldsTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(CatalogEntries)
	prometheus.MustRegister(CatalogReloadsTotal)
	prometheus.MustRegister(DeliveriesTotal)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordResolution counts one resolution outcome and its score.
func RecordResolution(status string, confidence int) {
	ResolutionsTotal.WithLabelValues(status).Inc()
	ResolutionConfidence.Observe(float64(confidence))
}

// RecordField counts one extracted dosing field.
func RecordField(field string) {
	ExtractedFieldsTotal.WithLabelValues(field).Inc()
}

// RecordCatalogReload counts a reload attempt and, on success, the new size.
func RecordCatalogReload(entries int, err error) {
	if err != nil {
		CatalogReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	CatalogReloadsTotal.WithLabelValues("success").Inc()
	CatalogEntries.Set(float64(entries))
}

// RecordDelivery counts one delivery attempt.
func RecordDelivery(err error) {
	if err != nil {
		DeliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	DeliveriesTotal.WithLabelValues("success").Inc()
}
