package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics exposes counters/histograms for payment reconciliation.
type PaymentMetrics struct {
	transitions  *prometheus.CounterVec
	queries      *prometheus.CounterVec
	pollLatency  prometheus.Histogram
	storeCleared *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "payments",
			Name:      "transitions_total",
			Help:      "Reconciler state transitions",
		}, []string{"from", "to"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "payments",
			Name:      "status_queries_total",
			Help:      "Payment status queries by outcome",
		}, []string{"result"}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "payments",
			Name:      "poll_latency_seconds",
			Help:      "Latency of payment status queries",
			Buckets:   prometheus.DefBuckets,
		}),
		storeCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "payments",
			Name:      "records_cleared_total",
			Help:      "Pending payment records removed from the state store",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.queries, m.pollLatency, m.storeCleared)
	return m
}

func (m *PaymentMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// ObserveQuery records one status query. result is the backend status, or
// "error" for a transient failure.
func (m *PaymentMetrics) ObserveQuery(result string, seconds float64) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(result).Inc()
	m.pollLatency.Observe(seconds)
}

func (m *PaymentMetrics) ObserveCleared(reason string) {
	if m == nil {
		return
	}
	m.storeCleared.WithLabelValues(reason).Inc()
}
