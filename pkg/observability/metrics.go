package observability

import (
	"net/http"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus collectors exported by Canopy.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Compiles           *prometheus.CounterVec
	CapabilityFailures prometheus.Counter
	Invocations        *prometheus.CounterVec
	InvocationDuration prometheus.Histogram
	InFlight           prometheus.Gauge
	Events             *prometheus.CounterVec
	DeliveryFailures   prometheus.Counter
}

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_compiles_total",
				Help: "Graph compilations by result",
			},
			[]string{"result"},
		),
		CapabilityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_capability_failures_total",
			Help: "Capability servers that failed to resolve during compile",
		}),
		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_invocations_total",
				Help: "Chat invocations by result",
			},
			[]string{"result"},
		),
		InvocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "canopy_invocation_duration_seconds",
			Help:    "Wall time of chat invocations",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canopy_invocations_in_flight",
			Help: "Invocations currently running on bridge workers",
		}),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_events_total",
				Help: "Intermediate events emitted by invocations",
			},
			[]string{"type"},
		),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_delivery_failures_total",
			Help: "Frames discarded because the connection was gone",
		}),
	}
	m.registry.MustRegister(
		m.Compiles,
		m.CapabilityFailures,
		m.Invocations,
		m.InvocationDuration,
		m.InFlight,
		m.Events,
		m.DeliveryFailures,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCompile records the outcome of one compile.
func (m *Metrics) ObserveCompile(err error) {
	if m == nil {
		return
	}
	m.Compiles.WithLabelValues(result(err)).Inc()
}

// CapabilityFailed counts one unresolved capability server.
func (m *Metrics) CapabilityFailed() {
	if m == nil {
		return
	}
	m.CapabilityFailures.Inc()
}

// InvocationStarted marks an invocation as running and returns a func that records its end.
func (m *Metrics) InvocationStarted() func(err error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	m.InFlight.Inc()
	return func(err error) {
		m.InFlight.Dec()
		m.Invocations.WithLabelValues(result(err)).Inc()
		m.InvocationDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveEvent counts an intermediate event by type.
func (m *Metrics) ObserveEvent(ev domain.Event) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(string(ev.Type)).Inc()
}

// DeliveryFailed counts a connection that stopped accepting frames mid-invocation.
func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.DeliveryFailures.Inc()
}
