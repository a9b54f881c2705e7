package reconcilers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/apollo/readiness/pkg/conditions"
	"github.com/apollo/readiness/pkg/metrics"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metameta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

const (
	fieldManagerName              = "deviceprocess-controller"
	deviceProcessDeploymentKey    = "deviceprocessdeployment"
	deviceProcessDeploymentUIDKey = "deviceprocessdeployment-uid"

	// selectorKeysIndex indexes deployments by the label keys their selector references.
	selectorKeysIndex = ".spec.selector.keys"
	// matchAllSelectorKey is indexed for deployments whose selector is empty.
	matchAllSelectorKey = "*"
)

// Condition reasons recorded on DeviceProcessDeployment status.
const (
	ReasonInvalidSelector   = "InvalidSelector"
	ReasonNoMatchingDevices = "NoMatchingDevices"
	ReasonApplyFailed       = "ApplyFailed"
	ReasonProcessesNotReady = "ProcessesNotReady"
	ReasonConverging        = "Converging"
	ReasonConverged         = "Converged"
)

var networkSwitchGVK = schema.GroupVersionKind{Group: "azure.com", Version: "v1alpha1", Kind: "NetworkSwitch"}

//+kubebuilder:rbac:groups=azure.com,resources=deviceprocessdeployments,verbs=get;list;watch
//+kubebuilder:rbac:groups=azure.com,resources=deviceprocessdeployments/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=azure.com,resources=deviceprocesses,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=azure.com,resources=deviceprocesses/status,verbs=get
//+kubebuilder:rbac:groups=azure.com,resources=networkswitches,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// DeviceProcessDeploymentReconciler reconciles DeviceProcessDeployment objects into DeviceProcess instances
// and aggregates their readiness into the deployment's Ready condition.
type DeviceProcessDeploymentReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	// Clock stamps condition transitions. Defaults to the real clock.
	Clock clock.PassiveClock
	// WatchNetworkSwitches enqueues deployments when a matching NetworkSwitch changes.
	// The NetworkSwitch CRD must be installed when this is set.
	WatchNetworkSwitches bool
}

// NewDeviceProcessDeploymentReconciler constructs a reconciler instance.
func NewDeviceProcessDeploymentReconciler(c client.Client, scheme *runtime.Scheme, recorder record.EventRecorder) *DeviceProcessDeploymentReconciler {
	return &DeviceProcessDeploymentReconciler{
		Client:   c,
		Scheme:   scheme,
		Recorder: recorder,
		Clock:    clock.RealClock{},
	}
}

// SetupWithManager wires the reconciler into the controller manager.
func (r *DeviceProcessDeploymentReconciler) SetupWithManager(mgr ctrl.Manager) error {
	b := ctrl.NewControllerManagedBy(mgr).
		For(&apiv1alpha1.DeviceProcessDeployment{}).
		Owns(&apiv1alpha1.DeviceProcess{})

	if r.WatchNetworkSwitches {
		if err := mgr.GetFieldIndexer().IndexField(context.Background(), &apiv1alpha1.DeviceProcessDeployment{}, selectorKeysIndex, indexSelectorKeys); err != nil {
			return fmt.Errorf("index deployment selectors: %w", err)
		}
		device := &unstructured.Unstructured{}
		device.SetGroupVersionKind(networkSwitchGVK)
		b = b.Watches(device, handler.EnqueueRequestsFromMapFunc(r.requestsForNetworkSwitch))
	}

	return b.Complete(r)
}

// Reconcile ensures DeviceProcess objects exist for each targeted NetworkSwitch and records the
// outcome as conditions on the deployment.
func (r *DeviceProcessDeploymentReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("deviceprocessdeployment", req.NamespacedName)
	ctx = log.IntoContext(ctx, logger)

	var deployment apiv1alpha1.DeviceProcessDeployment
	if err := r.Get(ctx, req.NamespacedName, &deployment); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	original := deployment.DeepCopy()
	status := &deployment.Status
	status.InitializeConditions()
	opts := r.conditionOptions(ctx)
	if status.ObservedGeneration != deployment.Generation {
		conditions.MarkTopLevelUnknown(status, opts...)
	}
	m := conditions.Manage(status, opts...)

	selector, err := metav1.LabelSelectorAsSelector(&deployment.Spec.Selector)
	if err != nil {
		m.MarkFalse(apiv1alpha1.ConditionDevicesSelected, ReasonInvalidSelector, "%v", err)
		status.ObservedGeneration = deployment.Generation
		if uerr := r.updateStatus(ctx, original, &deployment); uerr != nil {
			return ctrl.Result{}, uerr
		}
		return ctrl.Result{}, reconcile.TerminalError(err)
	}

	devices, err := r.listNetworkSwitches(ctx, deployment.Namespace, selector)
	if err != nil {
		return ctrl.Result{}, err
	}

	logger.Info("reconciling deployment", "matchedDevices", len(devices))

	if len(devices) == 0 {
		m.MarkFalse(apiv1alpha1.ConditionDevicesSelected, ReasonNoMatchingDevices, "selector %q matched no %s", selector.String(), networkSwitchGVK.Kind)
	} else {
		m.MarkTrue(apiv1alpha1.ConditionDevicesSelected)
	}

	desiredNames := make(map[string]struct{}, len(devices))
	createdCount := 0
	updatedCount := 0

	for i := range devices {
		device := devices[i]
		name := deviceProcessName(deployment.Name, device.GetName())
		desiredNames[name] = struct{}{}

		created, err := r.applyDeviceProcess(ctx, &deployment, &device, name)
		if err != nil {
			m.MarkFalse(apiv1alpha1.ConditionProcessesApplied, ReasonApplyFailed, "apply DeviceProcess %s: %v", name, err)
			r.Recorder.Eventf(&deployment, corev1.EventTypeWarning, ReasonApplyFailed, "Failed to apply DeviceProcess %s: %v", name, err)
			if uerr := r.updateStatus(ctx, original, &deployment); uerr != nil {
				logger.Error(uerr, "unable to record apply failure")
			}
			return ctrl.Result{}, err
		}
		if created {
			createdCount++
		} else {
			updatedCount++
		}
	}
	m.MarkTrue(apiv1alpha1.ConditionProcessesApplied)

	deletedCount, err := r.cleanupStale(ctx, &deployment, desiredNames)
	if err != nil {
		return ctrl.Result{}, err
	}

	if createdCount > 0 {
		r.Recorder.Eventf(&deployment, corev1.EventTypeNormal, "CreatedDeviceProcess", "Created %d DeviceProcess object(s)", createdCount)
	}
	if deletedCount > 0 {
		r.Recorder.Eventf(&deployment, corev1.EventTypeNormal, "DeletedDeviceProcess", "Deleted %d stale DeviceProcess object(s)", deletedCount)
	}

	if err := r.observeProcesses(ctx, &deployment, m, desiredNames); err != nil {
		return ctrl.Result{}, err
	}
	status.UpdatedNumberScheduled = int32(createdCount + updatedCount)
	status.ObservedGeneration = deployment.Generation

	wasReady := original.Status.IsReady()
	if err := r.updateStatus(ctx, original, &deployment); err != nil {
		return ctrl.Result{}, err
	}
	metrics.RecordTransitions("DeviceProcessDeployment", original.Status.Conditions, status.Conditions)
	r.recordReadiness(&deployment, wasReady)

	logger.Info("reconcile complete", "created", createdCount, "updated", updatedCount, "deleted", deletedCount,
		"ready", status.IsReady())

	return ctrl.Result{}, nil
}

func (r *DeviceProcessDeploymentReconciler) conditionOptions(ctx context.Context) []conditions.Option {
	clk := r.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return []conditions.Option{
		conditions.WithClock(clk),
		conditions.WithLogger(log.FromContext(ctx)),
	}
}

// observeProcesses folds the readiness of the owned DeviceProcesses into the counters and the
// ProcessesReady and Progressing conditions.
func (r *DeviceProcessDeploymentReconciler) observeProcesses(ctx context.Context, deployment *apiv1alpha1.DeviceProcessDeployment, m *conditions.Manager, desired map[string]struct{}) error {
	var processes apiv1alpha1.DeviceProcessList
	if err := r.List(ctx, &processes, client.InNamespace(deployment.Namespace), client.MatchingLabels{deviceProcessDeploymentKey: deployment.Name}); err != nil {
		return err
	}

	var current, ready, failed int32
	for i := range processes.Items {
		process := &processes.Items[i]
		if _, ok := desired[process.Name]; !ok || !metav1.IsControlledBy(process, deployment) {
			continue
		}
		current++
		switch {
		case process.Status.IsReady():
			ready++
		case process.Status.GetCondition(apiv1alpha1.ConditionReady).IsFalse():
			failed++
		}
	}

	total := int32(len(desired))
	status := &deployment.Status
	status.DesiredNumberScheduled = total
	status.CurrentNumberScheduled = current
	status.NumberReady = ready
	status.NumberAvailable = ready
	status.NumberUnavailable = total - ready

	switch {
	case ready == total:
		m.MarkTrue(apiv1alpha1.ConditionProcessesReady)
		m.MarkFalse(apiv1alpha1.ConditionProgressing, ReasonConverged, "%d/%d DeviceProcesses ready", ready, total)
	case failed > 0:
		m.MarkFalse(apiv1alpha1.ConditionProcessesReady, ReasonProcessesNotReady, "%d/%d DeviceProcesses ready, %d failed", ready, total, failed)
		m.MarkTrueWithReason(apiv1alpha1.ConditionProgressing, ReasonConverging, "%d/%d DeviceProcesses ready", ready, total)
	default:
		m.MarkUnknown(apiv1alpha1.ConditionProcessesReady, ReasonProcessesNotReady, "%d/%d DeviceProcesses ready", ready, total)
		m.MarkTrueWithReason(apiv1alpha1.ConditionProgressing, ReasonConverging, "%d/%d DeviceProcesses ready", ready, total)
	}
	return nil
}

func (r *DeviceProcessDeploymentReconciler) updateStatus(ctx context.Context, original, deployment *apiv1alpha1.DeviceProcessDeployment) error {
	if equality.Semantic.DeepEqual(original.Status, deployment.Status) {
		return nil
	}
	if err := r.Status().Patch(ctx, deployment, client.MergeFrom(original)); err != nil {
		return fmt.Errorf("update deployment status: %w", err)
	}
	return nil
}

// recordReadiness emits an event when the deployment's Ready condition changes.
func (r *DeviceProcessDeploymentReconciler) recordReadiness(deployment *apiv1alpha1.DeviceProcessDeployment, wasReady bool) {
	ready := deployment.Status.GetCondition(apiv1alpha1.ConditionReady)
	switch {
	case ready.IsTrue() && !wasReady:
		r.Recorder.Event(deployment, corev1.EventTypeNormal, "Ready", "All DeviceProcesses are ready")
	case ready.IsFalse() && wasReady:
		r.Recorder.Eventf(deployment, corev1.EventTypeWarning, ready.Reason, "Deployment is no longer ready: %s", ready.Message)
	}
}

func (r *DeviceProcessDeploymentReconciler) applyDeviceProcess(ctx context.Context, deployment *apiv1alpha1.DeviceProcessDeployment, device *unstructured.Unstructured, name string) (bool, error) {
	key := types.NamespacedName{Name: name, Namespace: deployment.Namespace}
	var existing apiv1alpha1.DeviceProcess
	err := r.Get(ctx, key, &existing)
	if err != nil && !apierrors.IsNotFound(err) {
		return false, err
	}
	created := apierrors.IsNotFound(err)

	desired := buildDesiredDeviceProcess(ctx, deployment, device, name)
	desired.SetResourceVersion("")

	if err := controllerutil.SetControllerReference(deployment, desired, r.Scheme); err != nil {
		return created, err
	}

	applyOpts := []client.PatchOption{client.FieldOwner(fieldManagerName)}
	if err := r.Patch(ctx, desired, client.Apply, applyOpts...); err != nil {
		if isApplyNotSupported(err) {
			return r.upsertWithoutSSA(ctx, desired, created)
		}
		if apierrors.IsNotFound(err) {
			if err := r.Create(ctx, desired); err != nil && !apierrors.IsAlreadyExists(err) {
				return created, err
			}
			created = true
			if err := r.Patch(ctx, desired, client.Apply, applyOpts...); err != nil {
				if isApplyNotSupported(err) {
					return r.upsertWithoutSSA(ctx, desired, created)
				}
				return created, err
			}
			return created, nil
		}
		return created, err
	}

	return created, nil
}

// upsertWithoutSSA is the fallback for API servers (and the fake client) without server-side apply.
// Labels and annotations set by other writers are kept.
func (r *DeviceProcessDeploymentReconciler) upsertWithoutSSA(ctx context.Context, desired *apiv1alpha1.DeviceProcess, created bool) (bool, error) {
	desired.SetResourceVersion("")
	desired.SetManagedFields(nil)

	if created {
		if err := r.Create(ctx, desired); err != nil {
			if !apierrors.IsAlreadyExists(err) {
				return created, err
			}
			created = false
		}
		return created, nil
	}

	var current apiv1alpha1.DeviceProcess
	key := types.NamespacedName{Name: desired.Name, Namespace: desired.Namespace}
	if err := r.Get(ctx, key, &current); err != nil {
		return created, err
	}

	current.Labels = mergeStringMaps(current.Labels, desired.Labels)
	current.Annotations = mergeStringMaps(current.Annotations, desired.Annotations)
	current.Spec = desired.Spec
	current.OwnerReferences = desired.OwnerReferences

	if err := r.Update(ctx, &current); err != nil {
		return created, err
	}

	return created, nil
}

func isApplyNotSupported(err error) bool {
	return strings.Contains(err.Error(), "apply patches are not supported")
}

func (r *DeviceProcessDeploymentReconciler) cleanupStale(ctx context.Context, deployment *apiv1alpha1.DeviceProcessDeployment, desired map[string]struct{}) (int, error) {
	var processes apiv1alpha1.DeviceProcessList
	if err := r.List(ctx, &processes, client.InNamespace(deployment.Namespace), client.MatchingLabels{deviceProcessDeploymentKey: deployment.Name}); err != nil {
		return 0, err
	}

	deleted := 0
	for i := range processes.Items {
		process := &processes.Items[i]
		if _, ok := desired[process.Name]; ok {
			continue
		}
		if !metav1.IsControlledBy(process, deployment) {
			continue
		}
		if err := r.Delete(ctx, process); err != nil {
			if apierrors.IsNotFound(err) {
				continue
			}
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func (r *DeviceProcessDeploymentReconciler) listNetworkSwitches(ctx context.Context, namespace string, selector labels.Selector) ([]unstructured.Unstructured, error) {
	list := &unstructured.UnstructuredList{}
	gvk := networkSwitchGVK.GroupVersion().WithKind(networkSwitchGVK.Kind + "List")
	list.SetGroupVersionKind(gvk)

	opts := []client.ListOption{client.InNamespace(namespace)}
	if selector != nil {
		opts = append(opts, client.MatchingLabelsSelector{Selector: selector})
	}

	if err := r.List(ctx, list, opts...); err != nil {
		if metameta.IsNoMatchError(err) {
			log.FromContext(ctx).Info("device kind not installed; skipping reconciliation for this kind", "gvk", gvk.String())
			return nil, nil
		}
		return nil, err
	}

	return list.Items, nil
}

// requestsForNetworkSwitch maps a NetworkSwitch to the deployments whose selector matches it.
func (r *DeviceProcessDeploymentReconciler) requestsForNetworkSwitch(ctx context.Context, obj client.Object) []reconcile.Request {
	logger := log.FromContext(ctx)
	deviceLabels := labels.Set(obj.GetLabels())

	keys := append([]string{matchAllSelectorKey}, sets.List(sets.KeySet(obj.GetLabels()))...)
	seen := sets.New[types.NamespacedName]()
	var requests []reconcile.Request

	for _, key := range keys {
		var deployments apiv1alpha1.DeviceProcessDeploymentList
		if err := r.List(ctx, &deployments, client.InNamespace(obj.GetNamespace()), client.MatchingFields{selectorKeysIndex: key}); err != nil {
			logger.Error(err, "unable to list deployments for device", "device", obj.GetName())
			return nil
		}
		for i := range deployments.Items {
			dep := &deployments.Items[i]
			name := types.NamespacedName{Name: dep.Name, Namespace: dep.Namespace}
			if seen.Has(name) {
				continue
			}
			selector, err := metav1.LabelSelectorAsSelector(&dep.Spec.Selector)
			if err != nil || !selector.Matches(deviceLabels) {
				continue
			}
			seen.Insert(name)
			requests = append(requests, reconcile.Request{NamespacedName: name})
		}
	}

	return requests
}

// indexSelectorKeys is the field indexer for selectorKeysIndex.
func indexSelectorKeys(obj client.Object) []string {
	dep, ok := obj.(*apiv1alpha1.DeviceProcessDeployment)
	if !ok {
		return nil
	}
	keys := selectorLabelKeys(&dep.Spec.Selector)
	if keys.Len() == 0 {
		return []string{matchAllSelectorKey}
	}
	return sets.List(keys)
}

func buildDesiredDeviceProcess(ctx context.Context, deployment *apiv1alpha1.DeviceProcessDeployment, device *unstructured.Unstructured, name string) *apiv1alpha1.DeviceProcess {
	template := deployment.Spec.Template
	selector := deployment.Spec.Selector

	labels := mergeStringMaps(template.Metadata.Labels, map[string]string{
		"app":                         deployment.Name,
		deviceProcessDeploymentKey:    deployment.Name,
		deviceProcessDeploymentUIDKey: string(deployment.UID),
	})
	labels = mergeStringMaps(labels, selectedDeviceLabels(ctx, device.GetLabels(), &selector))

	return &apiv1alpha1.DeviceProcess{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiv1alpha1.SchemeGroupVersion.String(),
			Kind:       "DeviceProcess",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   deployment.Namespace,
			Labels:      labels,
			Annotations: template.Metadata.Annotations,
		},
		Spec: apiv1alpha1.DeviceProcessSpec{
			DeviceRef: apiv1alpha1.DeviceRef{
				Kind: apiv1alpha1.DeviceRefKindNetworkSwitch,
				Name: device.GetName(),
			},
			Artifact:      template.Spec.Artifact,
			Execution:     template.Spec.Execution,
			RestartPolicy: template.Spec.RestartPolicy,
			HealthCheck:   template.Spec.HealthCheck,
		},
	}
}

func deviceProcessName(deploymentName, deviceName string) string {
	base := strings.ToLower(fmt.Sprintf("%s-%s", deploymentName, deviceName))
	if len(validation.IsDNS1123Subdomain(base)) == 0 && len(base) <= validation.DNS1123SubdomainMaxLength {
		return base
	}

	// hash both names so long device names do not collide across deployments
	hash := sha1.Sum([]byte(deploymentName + "/" + deviceName))
	hashStr := hex.EncodeToString(hash[:])[:10]
	maxPrefixLen := validation.DNS1123SubdomainMaxLength - len(hashStr) - 1
	prefix := strings.ToLower(deploymentName)
	if len(prefix) > maxPrefixLen {
		prefix = prefix[:maxPrefixLen]
	}
	prefix = strings.Trim(prefix, "-")
	if prefix == "" {
		prefix = "dpd"
	}

	return fmt.Sprintf("%s-%s", prefix, hashStr)
}

func selectorLabelKeys(selector *metav1.LabelSelector) sets.Set[string] {
	keys := sets.New[string]()
	if selector == nil {
		return keys
	}

	for k := range selector.MatchLabels {
		keys.Insert(k)
	}
	for _, expr := range selector.MatchExpressions {
		keys.Insert(expr.Key)
	}

	return keys
}

func selectedDeviceLabels(ctx context.Context, deviceLabels map[string]string, selector *metav1.LabelSelector) map[string]string {
	if len(deviceLabels) == 0 {
		return nil
	}

	keys := selectorLabelKeys(selector)
	for _, k := range []string{"role", "type", "rack"} {
		keys.Insert(k)
	}

	result := make(map[string]string)
	for key := range keys {
		val, ok := deviceLabels[key]
		if !ok {
			continue
		}
		if errs := validation.IsValidLabelValue(val); len(errs) > 0 {
			log.FromContext(ctx).V(1).Info("skipping device label with invalid value", "key", key, "reason", strings.Join(errs, "; "))
			continue
		}
		result[key] = val
	}

	return result
}

func mergeStringMaps(base map[string]string, extras map[string]string) map[string]string {
	result := make(map[string]string)
	for k, v := range base {
		result[k] = v
	}
	for k, v := range extras {
		result[k] = v
	}
	return result
}
