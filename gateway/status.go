package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/apollo/readiness/pkg/conditions"
	"github.com/apollo/readiness/pkg/metrics"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	runtimeSemanticsDaemonSet = "DaemonSet"

	connectedMessage    = "device reported"
	disconnectedMessage = "device stale (no recent reports)"
)

// Condition reasons written by the gateway.
const (
	ReasonAgentConnected    = "AgentConnected"
	ReasonAgentDisconnected = "AgentDisconnected"
	ReasonSpecObserved      = "SpecObserved"
	ReasonSpecPending       = "SpecPending"
	ReasonSpecWarning       = "SpecWarning"
	ReasonProcessStarted    = "ProcessStarted"
	ReasonProcessNotStarted = "ProcessNotStarted"
	ReasonReconcileError    = "ReconcileError"
	ReasonHealthy           = "Healthy"
	ReasonUnhealthy         = "Unhealthy"
	ReasonNoHealthCheck     = "NoHealthCheck"
)

// observedTypes are the conditions an observation may move, in event order.
var observedTypes = []conditions.ConditionType{
	apiv1alpha1.ConditionAgentConnected,
	apiv1alpha1.ConditionSpecObserved,
	apiv1alpha1.ConditionSpecWarning,
	apiv1alpha1.ConditionProcessStarted,
	apiv1alpha1.ConditionHealthy,
}

func (g *Gateway) manage(status *apiv1alpha1.DeviceProcessStatus) *conditions.Manager {
	status.InitializeConditions()
	return conditions.Manage(status, conditions.WithClock(g.clock), conditions.WithLogger(g.log))
}

func (g *Gateway) updateStatusForObservation(ctx context.Context, deviceName string, obs Observation, reportedAt time.Time) error {
	const maxAttempts = 3
	key := types.NamespacedName{Name: obs.Name, Namespace: obs.Namespace}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var proc apiv1alpha1.DeviceProcess
		if err := g.client.Get(ctx, key, &proc); err != nil {
			return err
		}

		if proc.Spec.DeviceRef.Name != deviceName {
			return apierrors.NewBadRequest(fmt.Sprintf("device %s not authorized for %s/%s", deviceName, proc.Namespace, proc.Name))
		}

		before := proc.DeepCopy()
		if err := g.applyObservation(&proc, obs); err != nil {
			return err
		}

		if equality.Semantic.DeepEqual(before.Status, proc.Status) {
			return nil
		}

		if err := g.patchStatus(ctx, before, &proc); err != nil {
			if apierrors.IsConflict(err) {
				continue
			}
			return err
		}

		g.recordTransitions(before, &proc, reportedAt)
		return nil
	}

	return apierrors.NewConflict(apiv1alpha1.SchemeGroupVersion.WithResource("deviceprocesses").GroupResource(), obs.Name, fmt.Errorf("status patch conflict after retries"))
}

// applyObservation folds one observation into the DeviceProcess status. Conditions are written
// through the condition manager, so repeating an observation leaves the status unchanged.
func (g *Gateway) applyObservation(proc *apiv1alpha1.DeviceProcess, obs Observation) error {
	status := &proc.Status
	m := g.manage(status)

	// DeviceProcess resources have DaemonSet semantics: resource present => agent enforces Running.
	status.RuntimeSemantics = runtimeSemanticsDaemonSet

	m.MarkTrueWithReason(apiv1alpha1.ConditionAgentConnected, ReasonAgentConnected, connectedMessage)

	if obs.ObservedSpecHash != "" {
		status.ObservedSpecHash = obs.ObservedSpecHash
		if desired := hashSpec(&proc.Spec); obs.ObservedSpecHash == desired {
			m.MarkTrueWithReason(apiv1alpha1.ConditionSpecObserved, ReasonSpecObserved, "hash=%s", obs.ObservedSpecHash)
		} else {
			m.MarkUnknown(apiv1alpha1.ConditionSpecObserved, ReasonSpecPending, "agent observed %s, desired %s", obs.ObservedSpecHash, desired)
		}
	}

	if msg := trimmed(obs.WarningMessage); msg != "" {
		m.MarkTrueWithReason(apiv1alpha1.ConditionSpecWarning, ReasonSpecWarning, "%s", msg)
	}

	if obs.ProcessStarted != nil {
		switch errMsg := trimmed(obs.ErrorMessage); {
		case *obs.ProcessStarted:
			m.MarkTrueWithReason(apiv1alpha1.ConditionProcessStarted, ReasonProcessStarted, "process started")
		case errMsg != "":
			m.MarkFalse(apiv1alpha1.ConditionProcessStarted, ReasonReconcileError, "%s", errMsg)
		default:
			m.MarkFalse(apiv1alpha1.ConditionProcessStarted, ReasonProcessNotStarted, "process not started")
		}
	}

	switch {
	case obs.Healthy != nil && *obs.Healthy:
		m.MarkTrueWithReason(apiv1alpha1.ConditionHealthy, ReasonHealthy, "process healthy")
	case obs.Healthy != nil:
		m.MarkFalse(apiv1alpha1.ConditionHealthy, ReasonUnhealthy, "process reported unhealthy")
	case proc.Spec.HealthCheck == nil && obs.ProcessStarted != nil && *obs.ProcessStarted:
		m.MarkTrueWithReason(apiv1alpha1.ConditionHealthy, ReasonNoHealthCheck, "no health check configured")
	}

	if obs.ArtifactVersion != nil {
		status.ArtifactVersion = strings.TrimSpace(*obs.ArtifactVersion)
	}
	if obs.PID != nil {
		status.PID = *obs.PID
	}
	if obs.StartTime != nil {
		if raw := strings.TrimSpace(*obs.StartTime); raw == "" {
			status.StartTime = nil
		} else {
			startTime, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return apierrors.NewBadRequest("invalid startTime")
			}
			t := metav1.NewTime(startTime)
			status.StartTime = &t
		}
	}
	if obs.RestartCount != nil {
		status.RestartCount = *obs.RestartCount
	}
	if obs.TerminationReason != nil {
		status.LastTerminationReason = strings.TrimSpace(*obs.TerminationReason)
	}

	g.updatePhase(status)
	return nil
}

// derivePhase maps the aggregate readiness onto the coarse phase shown by kubectl.
func derivePhase(status *apiv1alpha1.DeviceProcessStatus) apiv1alpha1.DeviceProcessPhase {
	ready := status.GetCondition(apiv1alpha1.ConditionReady)
	switch {
	case status.GetCondition(apiv1alpha1.ConditionAgentConnected).IsFalse():
		return apiv1alpha1.DeviceProcessPhaseUnknown
	case ready.IsTrue():
		return apiv1alpha1.DeviceProcessPhaseRunning
	case ready.IsFalse():
		return apiv1alpha1.DeviceProcessPhaseFailed
	default:
		return apiv1alpha1.DeviceProcessPhasePending
	}
}

func (g *Gateway) updatePhase(status *apiv1alpha1.DeviceProcessStatus) {
	phase := derivePhase(status)
	if phase == status.Phase {
		return
	}
	status.Phase = phase
	now := metav1.NewTime(g.clock.Now())
	status.LastTransitionTime = &now
}

func (g *Gateway) markDeviceConnected(ctx context.Context, deviceName string) error {
	return g.setAgentConnected(ctx, deviceName, func(m *conditions.Manager) {
		m.MarkTrueWithReason(apiv1alpha1.ConditionAgentConnected, ReasonAgentConnected, connectedMessage)
	})
}

func (g *Gateway) markDeviceDisconnected(ctx context.Context, deviceName string, age time.Duration) error {
	g.log.V(1).Info("device stale", "device", deviceName, "age", age.Round(time.Second).String())
	return g.setAgentConnected(ctx, deviceName, func(m *conditions.Manager) {
		m.MarkFalse(apiv1alpha1.ConditionAgentConnected, ReasonAgentDisconnected, disconnectedMessage)
	})
}

// setAgentConnected applies mark to every DeviceProcess bound to the device and writes the
// statuses whose AgentConnected condition moved.
func (g *Gateway) setAgentConnected(ctx context.Context, deviceName string, mark func(*conditions.Manager)) error {
	procs, err := g.listDeviceProcesses(ctx, deviceName)
	if err != nil {
		return err
	}
	for i := range procs {
		proc := &procs[i]
		before := proc.DeepCopy()
		m := g.manage(&proc.Status)
		mark(m)
		if proc.Status.GetCondition(apiv1alpha1.ConditionAgentConnected).SameAs(before.Status.GetCondition(apiv1alpha1.ConditionAgentConnected)) {
			continue
		}
		g.updatePhase(&proc.Status)
		if err := g.patchStatus(ctx, before, proc); err != nil {
			return err
		}
		g.recordTransitions(before, proc, g.clock.Now())
	}
	return nil
}

func (g *Gateway) patchStatus(ctx context.Context, before, proc *apiv1alpha1.DeviceProcess) error {
	return g.client.Status().Patch(ctx, proc, client.MergeFromWithOptions(before, client.MergeFromWithOptimisticLock{}))
}

// recordTransitions emits an event for every observed condition and readiness change between
// before and after. It runs only once the status write has landed.
func (g *Gateway) recordTransitions(before, after *apiv1alpha1.DeviceProcess, reportedAt time.Time) {
	metrics.RecordTransitions("DeviceProcess", before.Status.Conditions, after.Status.Conditions)

	for _, t := range observedTypes {
		cond := after.Status.GetCondition(t)
		if cond == nil || cond.SameAs(before.Status.GetCondition(t)) {
			continue
		}
		eventType := corev1.EventTypeNormal
		if !cond.IsTrue() || t == apiv1alpha1.ConditionSpecWarning {
			eventType = corev1.EventTypeWarning
		}
		msg := cond.Message
		if t == apiv1alpha1.ConditionSpecObserved {
			msg = fmt.Sprintf("%s at %s", msg, reportedAt.UTC().Format(time.RFC3339))
		}
		g.recorder.Event(after, eventType, cond.Reason, msg)
	}

	wasReady, ready := before.Status.IsReady(), after.Status.IsReady()
	switch {
	case ready && !wasReady:
		g.recorder.Event(after, corev1.EventTypeNormal, "Ready", "DeviceProcess is ready")
	case wasReady && !ready:
		cond := after.Status.GetCondition(apiv1alpha1.ConditionReady)
		g.recorder.Eventf(after, corev1.EventTypeWarning, "NotReady", "%s: %s", cond.Reason, cond.Message)
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
