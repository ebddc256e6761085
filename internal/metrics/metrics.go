// Package metrics holds the relay's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveExtractors counts extractor processes currently running.
	ActiveExtractors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediarelay",
			Name:      "active_extractors",
			Help:      "Extractor child processes currently running",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediarelay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediarelay",
			Name:      "probes_total",
			Help:      "Probe operations by outcome",
		},
		[]string{"outcome"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mediarelay",
			Name:      "probe_duration_seconds",
			Help:      "Probe duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediarelay",
			Name:      "streams_total",
			Help:      "Stream operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediarelay",
			Name:      "stream_bytes_total",
			Help:      "Bytes relayed to clients",
		},
		[]string{"kind"},
	)

	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediarelay",
			Name:      "stream_duration_seconds",
			Help:      "Stream duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		},
		[]string{"kind"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordProbe records a probe outcome.
func RecordProbe(outcome string, durationSec float64) {
	ProbesTotal.WithLabelValues(outcome).Inc()
	ProbeDuration.Observe(durationSec)
}

// RecordStream records a stream outcome and the bytes it delivered.
func RecordStream(kind, outcome string, bytes int64, durationSec float64) {
	StreamsTotal.WithLabelValues(kind, outcome).Inc()
	StreamDuration.WithLabelValues(kind).Observe(durationSec)
	if bytes > 0 {
		StreamBytesTotal.WithLabelValues(kind).Add(float64(bytes))
	}
}
