// Package metrics provides Prometheus metrics collection for anvil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"  // validation failed
	OutcomeConflict = "conflict" // uniqueness check failed
	OutcomeError    = "error"    // store failure
)

// Collector holds all Prometheus metrics for anvil. A nil *Collector is
// valid and records nothing.
type Collector struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Dispatcher metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ValidationErrors  *prometheus.CounterVec

	// Event metrics
	EventsPublished  *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "anvil",
				Name:      "http_requests_total",
				Help:      "Total number of admin HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "anvil",
				Name:      "http_request_duration_seconds",
				Help:      "Admin HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "anvil",
				Name:      "http_requests_in_flight",
				Help:      "Number of admin HTTP requests currently being served",
			},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "anvil",
				Name:      "operations_total",
				Help:      "Total number of dispatcher operations by outcome",
			},
			[]string{"resource", "operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "anvil",
				Name:      "operation_duration_seconds",
				Help:      "Dispatcher operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"resource", "operation"},
		),
		ValidationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "anvil",
				Name:      "validation_errors_total",
				Help:      "Total number of field validation errors",
			},
			[]string{"resource", "field"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "anvil",
				Name:      "events_published_total",
				Help:      "Total number of change events published",
			},
			[]string{"resource", "action"},
		),
		WebsocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "anvil",
				Name:      "websocket_clients",
				Help:      "Number of connected event stream clients",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "anvil",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "anvil",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "anvil",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ObserveOperation records one dispatcher call.
func (c *Collector) ObserveOperation(resource, operation, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.OperationsTotal.WithLabelValues(resource, operation, outcome).Inc()
	c.OperationDuration.WithLabelValues(resource, operation).Observe(d.Seconds())
}

// ObserveValidationError counts a failed field.
func (c *Collector) ObserveValidationError(resource, field string) {
	if c == nil {
		return
	}
	if field == "" {
		field = "_"
	}
	c.ValidationErrors.WithLabelValues(resource, field).Inc()
}

// ObserveEvent counts a published change event.
func (c *Collector) ObserveEvent(resource, action string) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(resource, action).Inc()
}

// TrackStreamClient adjusts the connected websocket client gauge by delta.
func (c *Collector) TrackStreamClient(delta float64) {
	if c == nil {
		return
	}
	c.WebsocketClients.Add(delta)
}

// TrackInFlight adjusts the in-flight request gauge by delta.
func (c *Collector) TrackInFlight(delta float64) {
	if c == nil {
		return
	}
	c.RequestsInFlight.Add(delta)
}

// ObserveRequest records one HTTP request. route is the matched route
// pattern, never the raw path, to bound cardinality.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveReload records a config reload attempt.
func (c *Collector) ObserveReload(err error, at time.Time) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// StatusClass maps a status code to "2xx", "4xx" and so on.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
