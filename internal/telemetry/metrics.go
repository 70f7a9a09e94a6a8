package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for installer operations.
const (
	OutcomeSuccess   = "success"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// MetricsConfig configures the marketplace collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "marketplace").
	Namespace string

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is where collectors are registered.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "marketplace",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for the installer and the HTTP
// server. A nil *Metrics is valid and records nothing.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	installedPlugins  prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	eventClients      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers the collectors.
//
// Metrics collected:
//   - marketplace_operations_total: installer operations by op and outcome
//   - marketplace_operation_duration_seconds: installer operation latency
//   - marketplace_installed_plugins: number of installed plugins
//   - marketplace_http_requests_total: API requests by method, route and status
//   - marketplace_http_request_duration_seconds: API request latency
//   - marketplace_event_clients: connected event stream clients
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	m := &Metrics{
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "operations_total",
			Help:      "Total number of installer operations",
		}, []string{"op", "outcome"}),

		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Installer operation duration in seconds",
			Buckets:   config.Buckets,
		}, []string{"op"}),

		installedPlugins: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "installed_plugins",
			Help:      "Number of installed plugins",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   config.Buckets,
		}, []string{"method", "route"}),

		eventClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "event_clients",
			Help:      "Number of connected event stream clients",
		}),
	}

	if g, ok := config.Registry.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// ObserveOperation records one installer operation.
func (m *Metrics) ObserveOperation(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, outcome).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetInstalled records the current number of installed plugins.
func (m *Metrics) SetInstalled(n int) {
	if m == nil {
		return
	}
	m.installedPlugins.Set(float64(n))
}

// ObserveRequest records one API request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// EventClientConnected and EventClientDisconnected track the event stream.
func (m *Metrics) EventClientConnected() {
	if m != nil {
		m.eventClients.Inc()
	}
}

func (m *Metrics) EventClientDisconnected() {
	if m != nil {
		m.eventClients.Dec()
	}
}

// Handler serves the Prometheus exposition format for the registry the
// collectors were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
