package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the report pipeline.
type Metrics struct {
	SubmissionsTotal    *prometheus.CounterVec // labels: outcome={accepted,rejected,invalid}
	ModerationFallbacks prometheus.Counter
	LiveSubscribers     prometheus.Gauge
	EventsDelivered     prometheus.Counter
	EventsDropped       prometheus.Counter
	WebhooksSent        *prometheus.CounterVec // labels: outcome={ok,failed}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SubmissionsTotal,
		m.ModerationFallbacks,
		m.LiveSubscribers,
		m.EventsDelivered,
		m.EventsDropped,
		m.WebhooksSent,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelhi",
			Name:      "report_submissions_total",
			Help:      "Report submissions by outcome.",
		}, []string{"outcome"}),
		ModerationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travelhi",
			Name:      "moderation_fallbacks_total",
			Help:      "Submissions classified by the rule fallback because the moderation collaborator was unavailable.",
		}),
		LiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "travelhi",
			Name:      "live_subscribers",
			Help:      "Currently connected live-update subscribers.",
		}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travelhi",
			Name:      "live_events_delivered_total",
			Help:      "Incident events delivered to subscriber buffers.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "travelhi",
			Name:      "live_events_dropped_total",
			Help:      "Incident events dropped because a subscriber buffer was full.",
		}),
		WebhooksSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelhi",
			Name:      "webhooks_sent_total",
			Help:      "Webhook deliveries by outcome.",
		}, []string{"outcome"}),
	}
}
