package reconcilers

import (
	"context"
	"strings"
	"testing"
	"time"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/apollo/readiness/pkg/conditions"
	"github.com/google/go-cmp/cmp"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/validation"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	clocktesting "k8s.io/utils/clock/testing"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestReconcileCreatesDeviceProcesses(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf", "rack": "r1"})
	switchB := networkSwitch("leaf-b", map[string]string{"role": "leaf", "rack": "r2"})

	k8sClient := newFakeClient(scheme, deployment, switchA, switchB)
	reconciler := newTestReconciler(k8sClient, scheme)

	ctx := context.Background()
	request := requestFor(deployment)

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	var processes apiv1alpha1.DeviceProcessList
	if err := k8sClient.List(ctx, &processes, client.InNamespace(deployment.Namespace)); err != nil {
		t.Fatalf("list deviceprocesses: %v", err)
	}

	if len(processes.Items) != 2 {
		t.Fatalf("expected 2 DeviceProcesses, got %d", len(processes.Items))
	}

	for i := range processes.Items {
		proc := &processes.Items[i]
		if !metav1.IsControlledBy(proc, deployment) {
			t.Fatalf("process %s missing owner reference", proc.Name)
		}
		if proc.Spec.DeviceRef.Kind != apiv1alpha1.DeviceRefKindNetworkSwitch {
			t.Fatalf("unexpected device kind %s", proc.Spec.DeviceRef.Kind)
		}
	}
}

func TestReconcileDeletesStaleDeviceProcesses(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf", "rack": "r1"})
	switchB := networkSwitch("leaf-b", map[string]string{"role": "leaf", "rack": "r2"})

	k8sClient := newFakeClient(scheme, deployment, switchA, switchB)
	reconciler := newTestReconciler(k8sClient, scheme)

	ctx := context.Background()
	request := requestFor(deployment)

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("initial reconcile returned error: %v", err)
	}

	var fetched apiv1alpha1.DeviceProcessDeployment
	if err := k8sClient.Get(ctx, request.NamespacedName, &fetched); err != nil {
		t.Fatalf("get deployment: %v", err)
	}
	fetched.Spec.Selector.MatchLabels = map[string]string{"role": "leaf", "rack": "r1"}
	if err := k8sClient.Update(ctx, &fetched); err != nil {
		t.Fatalf("update deployment selector: %v", err)
	}

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("second reconcile returned error: %v", err)
	}

	var processes apiv1alpha1.DeviceProcessList
	if err := k8sClient.List(ctx, &processes, client.InNamespace(deployment.Namespace)); err != nil {
		t.Fatalf("list deviceprocesses: %v", err)
	}

	if len(processes.Items) != 1 {
		t.Fatalf("expected 1 DeviceProcess after selector change, got %d", len(processes.Items))
	}

	if processes.Items[0].Spec.DeviceRef.Name != "leaf-a" {
		t.Fatalf("expected surviving process for leaf-a, got %s", processes.Items[0].Spec.DeviceRef.Name)
	}
}

func TestReconcileAggregatesProcessReadiness(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf"})
	switchB := networkSwitch("leaf-b", map[string]string{"role": "leaf"})

	k8sClient := newFakeClient(scheme, deployment, switchA, switchB)
	reconciler := newTestReconciler(k8sClient, scheme)
	recorder := reconciler.Recorder.(*record.FakeRecorder)

	ctx := context.Background()
	request := requestFor(deployment)

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	got := getDeployment(t, k8sClient, request)
	if got.Status.ObservedGeneration != deployment.Generation {
		t.Fatalf("expected observedGeneration %d, got %d", deployment.Generation, got.Status.ObservedGeneration)
	}
	if got.Status.DesiredNumberScheduled != 2 || got.Status.NumberReady != 0 || got.Status.NumberUnavailable != 2 {
		t.Fatalf("unexpected counters %+v", got.Status)
	}
	wantTypes := []conditions.ConditionType{
		apiv1alpha1.ConditionReady,
		apiv1alpha1.ConditionDevicesSelected,
		apiv1alpha1.ConditionProcessesApplied,
		apiv1alpha1.ConditionProcessesReady,
		apiv1alpha1.ConditionProgressing,
	}
	if diff := cmp.Diff(wantTypes, got.Status.Conditions.Types()); diff != "" {
		t.Fatalf("unexpected condition order (-want +got):\n%s", diff)
	}
	ready := got.Status.GetCondition(apiv1alpha1.ConditionReady)
	if !ready.IsUnknown() || ready.Reason != ReasonProcessesNotReady || ready.Message != "0/2 DeviceProcesses ready" {
		t.Fatalf("unexpected Ready condition %+v", ready)
	}
	if !got.Status.GetCondition(apiv1alpha1.ConditionDevicesSelected).IsTrue() {
		t.Fatalf("expected DevicesSelected to be True")
	}
	if !got.Status.GetCondition(apiv1alpha1.ConditionProgressing).IsTrue() {
		t.Fatalf("expected Progressing while processes converge")
	}

	markAllProcesses(t, k8sClient, deployment.Namespace, markProcessReady)

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("second reconcile returned error: %v", err)
	}

	got = getDeployment(t, k8sClient, request)
	if !got.Status.IsReady() {
		t.Fatalf("expected deployment to be ready, got %+v", got.Status.Conditions)
	}
	if got.Status.NumberReady != 2 || got.Status.NumberUnavailable != 0 {
		t.Fatalf("unexpected counters %+v", got.Status)
	}
	if progressing := got.Status.GetCondition(apiv1alpha1.ConditionProgressing); !progressing.IsFalse() || progressing.Reason != ReasonConverged {
		t.Fatalf("unexpected Progressing condition %+v", progressing)
	}
	if !hasEvent(recorder, "Ready") {
		t.Fatalf("expected a Ready event")
	}
}

func TestReconcileReportsFailedProcesses(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf"})

	k8sClient := newFakeClient(scheme, deployment, switchA)
	reconciler := newTestReconciler(k8sClient, scheme)

	ctx := context.Background()
	request := requestFor(deployment)

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	markAllProcesses(t, k8sClient, deployment.Namespace, func(m *conditions.Manager) {
		markProcessReady(m)
		m.MarkFalse(apiv1alpha1.ConditionHealthy, "ProbeFailed", "exit code %d", 1)
	})

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("second reconcile returned error: %v", err)
	}

	got := getDeployment(t, k8sClient, request)
	processesReady := got.Status.GetCondition(apiv1alpha1.ConditionProcessesReady)
	if !processesReady.IsFalse() || processesReady.Message != "0/1 DeviceProcesses ready, 1 failed" {
		t.Fatalf("unexpected ProcessesReady condition %+v", processesReady)
	}
	ready := got.Status.GetCondition(apiv1alpha1.ConditionReady)
	if !ready.IsFalse() || ready.Reason != ReasonProcessesNotReady {
		t.Fatalf("unexpected Ready condition %+v", ready)
	}
}

func TestReconcileMarksNoMatchingDevices(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "spine"})
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf"})

	k8sClient := newFakeClient(scheme, deployment, switchA)
	reconciler := newTestReconciler(k8sClient, scheme)

	request := requestFor(deployment)
	if _, err := reconciler.Reconcile(context.Background(), request); err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	got := getDeployment(t, k8sClient, request)
	selected := got.Status.GetCondition(apiv1alpha1.ConditionDevicesSelected)
	if !selected.IsFalse() || selected.Reason != ReasonNoMatchingDevices {
		t.Fatalf("unexpected DevicesSelected condition %+v", selected)
	}
	ready := got.Status.GetCondition(apiv1alpha1.ConditionReady)
	if !ready.IsFalse() || ready.Reason != ReasonNoMatchingDevices || ready.Message != selected.Message {
		t.Fatalf("expected Ready to mirror DevicesSelected, got %+v", ready)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf"})

	k8sClient := newFakeClient(scheme, deployment, switchA)
	reconciler := newTestReconciler(k8sClient, scheme)
	fakeClock := reconciler.Clock.(*clocktesting.FakeClock)

	ctx := context.Background()
	request := requestFor(deployment)

	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}
	before := getDeployment(t, k8sClient, request)

	fakeClock.Step(time.Minute)
	if _, err := reconciler.Reconcile(ctx, request); err != nil {
		t.Fatalf("second reconcile returned error: %v", err)
	}
	after := getDeployment(t, k8sClient, request)

	if before.ResourceVersion != after.ResourceVersion {
		t.Fatalf("expected no status write, resourceVersion moved from %s to %s", before.ResourceVersion, after.ResourceVersion)
	}
	if diff := cmp.Diff(before.Status.Conditions, after.Status.Conditions); diff != "" {
		t.Fatalf("conditions changed on an idle reconcile (-want +got):\n%s", diff)
	}
}

func TestReconcileNewGenerationRestampsReady(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	deployment.Generation = 2
	deployment.Status.ObservedGeneration = 1
	stale := metav1.NewTime(epoch.Add(-time.Hour))
	for _, ct := range append([]conditions.ConditionType{apiv1alpha1.ConditionReady}, apiv1alpha1.DeploymentConditions.Dependents()...) {
		deployment.Status.Conditions = append(deployment.Status.Conditions, conditions.Condition{
			Type:               ct,
			Status:             metav1.ConditionTrue,
			LastTransitionTime: &stale,
		})
	}
	switchA := networkSwitch("leaf-a", map[string]string{"role": "leaf"})

	proc := buildDesiredDeviceProcess(context.Background(), deployment, switchA, deviceProcessName(deployment.Name, switchA.GetName()))
	if err := controllerutil.SetControllerReference(deployment, proc, scheme); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	proc.Status.InitializeConditions()
	markProcessReady(conditions.Manage(&proc.Status))

	k8sClient := newFakeClient(scheme, deployment, switchA, proc)
	reconciler := newTestReconciler(k8sClient, scheme)

	request := requestFor(deployment)
	if _, err := reconciler.Reconcile(context.Background(), request); err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	got := getDeployment(t, k8sClient, request)
	if got.Status.ObservedGeneration != 2 {
		t.Fatalf("expected observedGeneration 2, got %d", got.Status.ObservedGeneration)
	}
	ready := got.Status.GetCondition(apiv1alpha1.ConditionReady)
	if !ready.IsTrue() {
		t.Fatalf("expected Ready to settle True, got %+v", ready)
	}
	// Ready passed through Unknown for the new generation, so it carries a fresh timestamp.
	if !ready.LastTransitionTime.Time.Equal(epoch) {
		t.Fatalf("expected Ready to be restamped at %v, got %v", epoch, ready.LastTransitionTime)
	}
	if selected := got.Status.GetCondition(apiv1alpha1.ConditionDevicesSelected); !selected.LastTransitionTime.Time.Equal(stale.Time) {
		t.Fatalf("expected unchanged DevicesSelected to keep its timestamp, got %v", selected.LastTransitionTime)
	}
}

func TestDeviceProcessNameHashIncludesDeployment(t *testing.T) {
	deviceName := strings.Repeat("a", 240)

	nameA := deviceProcessName("deployment-a", deviceName)
	nameB := deviceProcessName("deployment-b", deviceName)

	if nameA == nameB {
		t.Fatalf("expected hashed names to differ across deployments, got %s", nameA)
	}
	if len(nameA) > validation.DNS1123SubdomainMaxLength || len(nameB) > validation.DNS1123SubdomainMaxLength {
		t.Fatalf("hashed names exceed DNS subdomain length")
	}
}

func TestBuildDesiredDeviceProcessSkipsInvalidDeviceLabels(t *testing.T) {
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf"})
	badValue := strings.Repeat("r", 70)
	device := networkSwitch("leaf-a", map[string]string{"rack": badValue, "role": "leaf"})

	proc := buildDesiredDeviceProcess(context.Background(), deployment, device, "dpd-leaf-a")
	if _, ok := proc.Labels["rack"]; ok {
		t.Fatalf("expected invalid device label to be skipped")
	}
	if proc.Labels["role"] != "leaf" {
		t.Fatalf("expected selected device label to be copied")
	}
	if proc.Labels[deviceProcessDeploymentUIDKey] != string(deployment.UID) {
		t.Fatalf("missing deployment UID label on DeviceProcess")
	}
}

func TestUpsertWithoutSSAUpdatesExistingWithoutDroppingMetadata(t *testing.T) {
	scheme := testScheme(t)
	existing := &apiv1alpha1.DeviceProcess{
		ObjectMeta: metav1.ObjectMeta{
			Name:        "dpd-device",
			Namespace:   "default",
			Labels:      map[string]string{"agent": "keep"},
			Annotations: map[string]string{"agent": "keep"},
		},
		Spec: apiv1alpha1.DeviceProcessSpec{},
	}

	desired := existing.DeepCopy()
	desired.Labels = map[string]string{
		"controller": "set",
	}
	desired.Annotations = map[string]string{"controller": "set"}

	r := newTestReconciler(newFakeClient(scheme, existing), scheme)

	if _, err := r.upsertWithoutSSA(context.Background(), desired, false); err != nil {
		t.Fatalf("upsertWithoutSSA returned error: %v", err)
	}

	var updated apiv1alpha1.DeviceProcess
	if err := r.Get(context.Background(), types.NamespacedName{Name: desired.Name, Namespace: desired.Namespace}, &updated); err != nil {
		t.Fatalf("get updated process: %v", err)
	}

	if updated.Labels["agent"] != "keep" {
		t.Fatalf("agent label was dropped during update")
	}
	if updated.Annotations["agent"] != "keep" {
		t.Fatalf("agent annotation was dropped during update")
	}
	if updated.Labels["controller"] != "set" || updated.Annotations["controller"] != "set" {
		t.Fatalf("controller metadata not applied")
	}
}

func TestRequestsForNetworkSwitchMatchesSelectors(t *testing.T) {
	scheme := testScheme(t)
	deployment := sampleDeployment("dpd", map[string]string{"role": "leaf", "rack": "r1"})
	other := sampleDeployment("other", map[string]string{"role": "spine"})
	everything := sampleDeployment("everything", nil)
	switchObj := networkSwitch("leaf-a", map[string]string{"role": "leaf", "rack": "r1"})

	cl := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(deployment, other, everything).
		WithIndex(&apiv1alpha1.DeviceProcessDeployment{}, selectorKeysIndex, indexSelectorKeys).
		Build()

	reconciler := newTestReconciler(cl, scheme)

	reqs := reconciler.requestsForNetworkSwitch(context.Background(), switchObj)

	want := []reconcile.Request{
		{NamespacedName: types.NamespacedName{Name: everything.Name, Namespace: everything.Namespace}},
		{NamespacedName: types.NamespacedName{Name: deployment.Name, Namespace: deployment.Namespace}},
	}
	if diff := cmp.Diff(want, reqs); diff != "" {
		t.Fatalf("unexpected requests (-want +got):\n%s", diff)
	}
}

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		t.Fatalf("add client-go scheme: %v", err)
	}
	if err := apiv1alpha1.AddToScheme(scheme); err != nil {
		t.Fatalf("add api scheme: %v", err)
	}

	scheme.AddKnownTypeWithName(networkSwitchGVK, &unstructured.Unstructured{})
	scheme.AddKnownTypeWithName(networkSwitchGVK.GroupVersion().WithKind("NetworkSwitchList"), &unstructured.UnstructuredList{})

	return scheme
}

func newFakeClient(scheme *runtime.Scheme, objs ...client.Object) client.Client {
	return fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithStatusSubresource(&apiv1alpha1.DeviceProcessDeployment{}, &apiv1alpha1.DeviceProcess{}).
		Build()
}

func newTestReconciler(c client.Client, scheme *runtime.Scheme) *DeviceProcessDeploymentReconciler {
	return &DeviceProcessDeploymentReconciler{
		Client:   c,
		Scheme:   scheme,
		Recorder: record.NewFakeRecorder(20),
		Clock:    clocktesting.NewFakeClock(epoch),
	}
}

func requestFor(deployment *apiv1alpha1.DeviceProcessDeployment) ctrl.Request {
	return ctrl.Request{NamespacedName: types.NamespacedName{Name: deployment.Name, Namespace: deployment.Namespace}}
}

func getDeployment(t *testing.T, c client.Client, req ctrl.Request) *apiv1alpha1.DeviceProcessDeployment {
	t.Helper()
	var dep apiv1alpha1.DeviceProcessDeployment
	if err := c.Get(context.Background(), req.NamespacedName, &dep); err != nil {
		t.Fatalf("get deployment: %v", err)
	}
	return &dep
}

func markProcessReady(m *conditions.Manager) {
	for _, t := range m.ConditionSet().Dependents() {
		m.MarkTrue(t)
	}
}

// markAllProcesses applies mark to the conditions of every DeviceProcess in namespace and
// writes the result through the status subresource, standing in for the gateway.
func markAllProcesses(t *testing.T, c client.Client, namespace string, mark func(*conditions.Manager)) {
	t.Helper()
	ctx := context.Background()
	var processes apiv1alpha1.DeviceProcessList
	if err := c.List(ctx, &processes, client.InNamespace(namespace)); err != nil {
		t.Fatalf("list deviceprocesses: %v", err)
	}
	for i := range processes.Items {
		proc := &processes.Items[i]
		proc.Status.InitializeConditions()
		mark(conditions.Manage(&proc.Status))
		if err := c.Status().Update(ctx, proc); err != nil {
			t.Fatalf("update process status: %v", err)
		}
	}
}

func hasEvent(recorder *record.FakeRecorder, reason string) bool {
	for {
		select {
		case event := <-recorder.Events:
			if strings.Contains(event, reason) {
				return true
			}
		default:
			return false
		}
	}
}

func sampleDeployment(name string, selector map[string]string) *apiv1alpha1.DeviceProcessDeployment {
	return &apiv1alpha1.DeviceProcessDeployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:       name,
			Namespace:  "default",
			UID:        types.UID(name + "-uid"),
			Generation: 1,
		},
		Spec: apiv1alpha1.DeviceProcessDeploymentSpec{
			Selector: metav1.LabelSelector{MatchLabels: selector},
			Template: apiv1alpha1.DeviceProcessTemplate{
				Metadata: apiv1alpha1.DeviceProcessTemplateMetadata{
					Labels: map[string]string{"component": "process"},
				},
				Spec: apiv1alpha1.DeviceProcessTemplateSpec{
					Artifact:  apiv1alpha1.DeviceProcessArtifact{Type: apiv1alpha1.ArtifactTypeOCI, URL: "oci://example"},
					Execution: apiv1alpha1.DeviceProcessExecution{Backend: apiv1alpha1.DeviceProcessBackendSystemd, Command: []string{"/bin/echo"}},
				},
			},
		},
	}
}

func networkSwitch(name string, labels map[string]string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(networkSwitchGVK)
	obj.SetName(name)
	obj.SetNamespace("default")
	obj.SetLabels(labels)
	return obj
}
