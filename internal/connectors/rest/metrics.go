package rest

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-connector request counts and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connect",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests issued to provider APIs.",
		}, []string{"connector", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "connect",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests issued to provider APIs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"connector", "method"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// observe records one request. A status of 0 means a transport error.
func (m *Metrics) observe(connector, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(connector, method, label).Inc()
	m.duration.WithLabelValues(connector, method).Observe(elapsed.Seconds())
}
