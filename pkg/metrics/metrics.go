// Package metrics exposes readiness metrics on the controller-runtime registry, so they are
// served by the manager's metrics endpoint.
package metrics

import (
	"github.com/apollo/readiness/pkg/conditions"
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// ConditionTransitions counts condition status changes written to the API server.
	ConditionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "praetor",
		Name:      "condition_transitions_total",
		Help:      "Number of condition status transitions, by resource kind, condition type and new status.",
	}, []string{"kind", "type", "status"})

	// GatewayReports counts agent reports by outcome.
	GatewayReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "praetor",
		Subsystem: "gateway",
		Name:      "reports_total",
		Help:      "Number of agent reports handled by the gateway, by result.",
	}, []string{"result"})

	// StaleDevices is the number of devices whose heartbeat has lapsed.
	StaleDevices = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "praetor",
		Subsystem: "gateway",
		Name:      "stale_devices",
		Help:      "Number of devices considered disconnected by the last staleness sweep.",
	})
)

func init() {
	ctrlmetrics.Registry.MustRegister(ConditionTransitions, GatewayReports, StaleDevices)
}

// RecordTransitions counts every condition in after whose status differs from its entry in
// before. Reason or message changes alone are not transitions.
func RecordTransitions(kind string, before, after conditions.Conditions) {
	for i := range after {
		cond := &after[i]
		prev := before.Get(cond.Type)
		if prev != nil && prev.Status == cond.Status {
			continue
		}
		ConditionTransitions.WithLabelValues(kind, string(cond.Type), string(cond.Status)).Inc()
	}
}
