// Package disruptormetrics adapts disruptor.MetricsRecorder to Prometheus,
// keeping the core disruptor package free of any particular metrics
// client while giving callers a ready-made collector set.
package disruptormetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rishav/disruptor/disruptor"
)

// PrometheusRecorder records Disruptor lifecycle counters as Prometheus
// collectors. Construct one per Disruptor instance and pass it to
// disruptor.WithMetrics.
type PrometheusRecorder struct {
	published   prometheus.Counter
	timedOut    prometheus.Counter
	subscribers prometheus.Gauge
	closed      prometheus.Counter
}

// NewPrometheusRecorder registers its collectors against reg under the
// given namespace and subsystem.
func NewPrometheusRecorder(reg prometheus.Registerer, namespace, subsystem string) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "published_total",
			Help:      "Number of events successfully published.",
		}),
		timedOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "publish_timeouts_total",
			Help:      "Number of Publish calls that timed out waiting on a lagging subscriber.",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "subscribers",
			Help:      "Current number of registered subscribers.",
		}),
		closed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "closed_total",
			Help:      "Number of times Close fired (expected to be at most 1).",
		}),
	}
}

func (r *PrometheusRecorder) PublishSucceeded(disruptor.Sequence) { r.published.Inc() }
func (r *PrometheusRecorder) PublishTimedOut()                     { r.timedOut.Inc() }
func (r *PrometheusRecorder) SubscriberRegistered()                { r.subscribers.Inc() }
func (r *PrometheusRecorder) SubscriberRemoved()                   { r.subscribers.Dec() }
func (r *PrometheusRecorder) Closed()                              { r.closed.Inc() }
