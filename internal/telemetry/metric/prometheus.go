package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "keyvault"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Device metrics
	OpsTotal   *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec

	// Transport metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	AuthFailures      prometheus.Counter
}

// NewRegistry creates a registry with the device and transport metrics and
// the Go runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "device",
			Name:      "operations_total",
			Help:      "Device operations by name and outcome.",
		}, []string{"op", "outcome"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "device",
			Name:      "operation_duration_seconds",
			Help:      "Device operation latency.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"op"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "redis",
			Name:      "connections_active",
			Help:      "Open RESP connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "redis",
			Name:      "connections_total",
			Help:      "Accepted RESP connections.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "redis",
			Name:      "auth_failures_total",
			Help:      "Rejected AUTH attempts.",
		}),
	}

	r.reg.MustRegister(
		r.OpsTotal,
		r.OpDuration,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.AuthFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOp records one device operation.
func (r *Registry) ObserveOp(op, outcome string, elapsed time.Duration) {
	r.OpsTotal.WithLabelValues(op, outcome).Inc()
	r.OpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ConnOpened records an accepted RESP connection.
func (r *Registry) ConnOpened() {
	r.ConnectionsTotal.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed RESP connection.
func (r *Registry) ConnClosed() {
	r.ConnectionsActive.Dec()
}

// AuthFailed records a rejected AUTH.
func (r *Registry) AuthFailed() {
	r.AuthFailures.Inc()
}

// MustRegister adds further collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
