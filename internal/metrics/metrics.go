// Package metrics defines the Prometheus collectors exported by the Travel
// Journal. A nil *Metrics is valid and records nothing, so components can be
// constructed in tests without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "travel_journal"

// Metrics groups every collector the service updates.
type Metrics struct {
	gatherer prometheus.Gatherer

	Records         prometheus.Gauge
	Mutations       *prometheus.CounterVec
	StorageFailures *prometheus.CounterVec
	MapInitAttempts prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration panics.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Number of travel records in the collection.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Collection mutations by operation.",
		}, []string{"op"}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Swallowed persistence failures by operation.",
		}, []string{"op"}),
		MapInitAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_init_attempts_total",
			Help:      "Attempts made to load the mapping library.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.Records, m.Mutations, m.StorageFailures, m.MapInitAttempts, m.RequestDuration)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SetRecords updates the collection size gauge.
func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.Records.Set(float64(n))
}

// Mutation counts one collection mutation ("add", "update", "delete").
func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

// StorageFailure counts one swallowed storage error ("load", "save").
func (m *Metrics) StorageFailure(op string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(op).Inc()
}

// MapInitAttempt counts one mapping-library load attempt.
func (m *Metrics) MapInitAttempt() {
	if m == nil {
		return
	}
	m.MapInitAttempts.Inc()
}

// ObserveRequest records one served request under its route pattern.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
