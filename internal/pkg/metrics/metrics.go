// Package metrics bundles the prometheus instruments the services and the
// HTTP layer record into. Instruments are created once at startup and
// injected; nothing news a vector inside a hot path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	UseCaseRequests *prometheus.CounterVec
	UseCaseDuration *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	EventPublishFailures *prometheus.CounterVec
}

// New registers the instrument set on the given registerer. Tests pass a
// fresh prometheus.NewRegistry() so repeated construction never collides.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		UseCaseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usecase_requests_total",
			Help:      "Total number of use case invocations.",
		}, []string{"use_case", "outcome"}),
		UseCaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "usecase_duration_seconds",
			Help:      "Duration of use case execution in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"use_case"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		EventPublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failed_total",
			Help:      "Count of order lifecycle event publish failures.",
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.UseCaseRequests,
		m.UseCaseDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		m.EventPublishFailures,
	)
	return m
}

// ObserveUseCase records one use case invocation. Nil-safe so services can
// run without metrics in tests.
func (m *Metrics) ObserveUseCase(useCase, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.UseCaseRequests.WithLabelValues(useCase, outcome).Inc()
	m.UseCaseDuration.WithLabelValues(useCase).Observe(seconds)
}

// Handler exposes the default prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
