package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	RefreshOK            = "ok"
	RefreshFailed        = "refresh_failed"
	RefreshPersistFailed = "persist_failed"
)

// Metrics holds the Prometheus collectors for token refreshes and Drive calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// TokenRefreshes counts refresh attempts by outcome
	TokenRefreshes *prometheus.CounterVec
	// DriveRequests counts provider calls by operation and outcome
	DriveRequests *prometheus.CounterVec
	// DriveLatency tracks provider call latency by operation
	DriveLatency *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a private registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_total",
				Help:      "Total number of access token refresh attempts",
			},
			[]string{"outcome"},
		),
		DriveRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drive_requests_total",
				Help:      "Total number of Google Drive API calls",
			},
			[]string{"op", "outcome"},
		),
		DriveLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "drive_request_duration_seconds",
				Help:      "Google Drive API call latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(m.TokenRefreshes, m.DriveRequests, m.DriveLatency)
	return m
}

// ObserveRefresh records one refresh attempt.
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObserveDriveRequest records one provider call.
func (m *Metrics) ObserveDriveRequest(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.DriveRequests.WithLabelValues(op, outcome).Inc()
	m.DriveLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
