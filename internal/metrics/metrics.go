// Package metrics registers Prometheus instrumentation for the lifecycle
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ComplaintTransitions  *prometheus.CounterVec
	MembershipTransitions *prometheus.CounterVec
	CancellationsBlocked  *prometheus.CounterVec
	EscalationScans       prometheus.Counter
	EscalationScanErrors  prometheus.Counter
	Escalations           prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer. Tests
// pass a private registry to avoid duplicate registration across cases.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ComplaintTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_complaint_transitions_total",
			Help: "Complaint status transitions by target status.",
		}, []string{"to"}),
		MembershipTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_membership_transitions_total",
			Help: "Membership status transitions by target status.",
		}, []string{"to"}),
		CancellationsBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subpool_cancellations_blocked_total",
			Help: "Cancellation requests refused, by blocking reason.",
		}, []string{"reason"}),
		EscalationScans: factory.NewCounter(prometheus.CounterOpts{
			Name: "subpool_escalation_scans_total",
			Help: "Deadline escalator scan ticks.",
		}),
		EscalationScanErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "subpool_escalation_scan_errors_total",
			Help: "Deadline escalator scan ticks that failed and will retry.",
		}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "subpool_escalations_total",
			Help: "Complaints escalated to intervention by the scan.",
		}),
	}
}
