package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for webhook ingestion and
// call reconciliation. All methods are nil-receiver safe so callers can
// run without metrics wired.
type WebhookMetrics struct {
	eventsTotal     *prometheus.CounterVec
	ackLatency      *prometheus.HistogramVec
	reconcileTotal  *prometheus.CounterVec
	syncCallsTotal  *prometheus.CounterVec
	dispatchDropped prometheus.Counter
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callsync",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total webhook events received",
		}, []string{"event_type", "status"}),
		ackLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "callsync",
			Subsystem: "webhook",
			Name:      "ack_latency_seconds",
			Help:      "Time from webhook receipt to response write",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callsync",
			Subsystem: "reconcile",
			Name:      "events_total",
			Help:      "Reconciliation results by event type",
		}, []string{"event_type", "result"}),
		syncCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callsync",
			Subsystem: "sync",
			Name:      "calls_total",
			Help:      "Calls processed by bulk sync",
		}, []string{"result"}),
		dispatchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callsync",
			Subsystem: "webhook",
			Name:      "dispatch_dropped_total",
			Help:      "Events dropped because the reconcile queue was full",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.ackLatency, m.reconcileTotal, m.syncCallsTotal, m.dispatchDropped)
	return m
}

func (m *WebhookMetrics) ObserveEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveAckLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.ackLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *WebhookMetrics) ObserveReconcile(eventType, result string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(eventType, result).Inc()
}

func (m *WebhookMetrics) ObserveSyncCall(result string) {
	if m == nil {
		return
	}
	m.syncCallsTotal.WithLabelValues(result).Inc()
}

func (m *WebhookMetrics) ObserveDispatchDropped() {
	if m == nil {
		return
	}
	m.dispatchDropped.Inc()
}
