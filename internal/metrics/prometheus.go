package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KasperOmsK/rxfn/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metrics are created and registered lazily on first use, so constructing a
// collector that is never installed has no side effect on the registerer.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	subscriptionsActive prometheus.Gauge
	subscriptionsTotal  prometheus.Counter
	notifications       *prometheus.CounterVec
	unhandledErrors     prometheus.Counter
	connects            prometheus.Counter
	retries             *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "rxfn" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "rxfn"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.subscriptionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Number of subscriptions currently open.",
		})
		p.subscriptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "created_total",
			Help:      "Total subscriptions created.",
		})
		p.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "notifications_total",
			Help:      "Notifications delivered to observers by kind.",
		}, []string{"kind"})
		p.unhandledErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "unhandled_errors_total",
			Help:      "Errors that reached a subscriber without an error callback.",
		})
		p.connects = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "multicast",
			Name:      "connects_total",
			Help:      "Connections of connectable observables to their source.",
		})
		p.retries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "multicast",
			Name:      "retries_total",
			Help:      "Resubscriptions performed by retry operators.",
		}, []string{"operator"})

		p.reg.MustRegister(
			p.subscriptionsActive,
			p.subscriptionsTotal,
			p.notifications,
			p.unhandledErrors,
			p.connects,
			p.retries,
		)
	})
}

// RecordSubscribe increments the created counter and the active gauge.
func (p *PrometheusCollector) RecordSubscribe() {
	p.ensureRegistered()
	p.subscriptionsTotal.Inc()
	p.subscriptionsActive.Inc()
}

// RecordUnsubscribe decrements the active gauge.
func (p *PrometheusCollector) RecordUnsubscribe() {
	p.ensureRegistered()
	p.subscriptionsActive.Dec()
}

// RecordNotification counts a delivered notification.
func (p *PrometheusCollector) RecordNotification(kind string) {
	p.ensureRegistered()
	p.notifications.WithLabelValues(kind).Inc()
}

// RecordUnhandledError counts an unhandled error.
func (p *PrometheusCollector) RecordUnhandledError() {
	p.ensureRegistered()
	p.unhandledErrors.Inc()
}

// RecordConnect counts a connection.
func (p *PrometheusCollector) RecordConnect() {
	p.ensureRegistered()
	p.connects.Inc()
}

// RecordRetry counts a resubscription.
func (p *PrometheusCollector) RecordRetry(operator string) {
	p.ensureRegistered()
	p.retries.WithLabelValues(operator).Inc()
}
