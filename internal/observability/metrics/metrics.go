package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CancellationMetrics exposes counters/histograms for the cancellation and
// reschedule workflows.
type CancellationMetrics struct {
	workflowTotal     *prometheus.CounterVec
	workflowLatency   *prometheus.HistogramVec
	refundTotal       *prometheus.CounterVec
	refundedSatang    prometheus.Counter
	notificationTotal *prometheus.CounterVec
}

func NewCancellationMetrics(reg prometheus.Registerer) *CancellationMetrics {
	m := &CancellationMetrics{
		workflowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sabaihome",
			Subsystem: "cancellation",
			Name:      "workflow_total",
			Help:      "Cancellation/reschedule workflow runs by outcome",
		}, []string{"operation", "outcome"}),
		workflowLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sabaihome",
			Subsystem: "cancellation",
			Name:      "workflow_latency_seconds",
			Help:      "End-to-end workflow latency including refund and fan-out",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		refundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sabaihome",
			Subsystem: "refunds",
			Name:      "attempts_total",
			Help:      "Refund attempts by terminal status",
		}, []string{"status"}),
		refundedSatang: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sabaihome",
			Subsystem: "refunds",
			Name:      "amount_satang_total",
			Help:      "Total satang sent back to customers",
		}),
		notificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sabaihome",
			Subsystem: "notify",
			Name:      "sends_total",
			Help:      "Notification channel sends by outcome",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.workflowTotal, m.workflowLatency, m.refundTotal, m.refundedSatang, m.notificationTotal)
	return m
}

func (m *CancellationMetrics) ObserveWorkflow(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.workflowTotal.WithLabelValues(operation, outcome).Inc()
	m.workflowLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *CancellationMetrics) ObserveRefund(status string, amountSatang int64) {
	if m == nil {
		return
	}
	m.refundTotal.WithLabelValues(status).Inc()
	if status == "completed" && amountSatang > 0 {
		m.refundedSatang.Add(float64(amountSatang))
	}
}

func (m *CancellationMetrics) ObserveNotification(channel string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.notificationTotal.WithLabelValues(channel, status).Inc()
}
