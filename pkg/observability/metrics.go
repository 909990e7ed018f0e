package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	registerOnce sync.Once

	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "damage",
			Subsystem: "intake",
			Name:      "reports_total",
			Help:      "Damage reports received, by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	codecFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "damage",
			Subsystem: "codec",
			Name:      "failures_total",
			Help:      "Wire text rejected by the codec, by error class.",
		},
		[]string{"class"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "damage",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "damage",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(reportsTotal, codecFailures, httpRequests, httpDuration)
	})
}

func RecordReport(source, outcome string) {
	RegisterMetrics()
	reportsTotal.WithLabelValues(source, outcome).Inc()
}

func RecordCodecFailure(class string) {
	RegisterMetrics()
	codecFailures.WithLabelValues(class).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
