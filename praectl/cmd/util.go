package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/apollo/readiness/pkg/conditions"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func formatSelector(labels map[string]string) string {
	if len(labels) == 0 {
		return "<none>"
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func age(t *metav1.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return duration.HumanDuration(now.Sub(t.Time))
}

// newObjectForKind accepts the kinds praectl understands, with the usual plural and short forms.
func newObjectForKind(kind string) (ctrlclient.Object, error) {
	switch strings.ToLower(kind) {
	case "deviceprocess", "deviceprocesses", "dp":
		return &apiv1alpha1.DeviceProcess{}, nil
	case "deviceprocessdeployment", "deviceprocessdeployments", "deployment", "deployments", "dpd":
		return &apiv1alpha1.DeviceProcessDeployment{}, nil
	default:
		return nil, fmt.Errorf("unsupported kind %q (want deviceprocess or deviceprocessdeployment)", kind)
	}
}

// readinessOf returns the condition set and conditions of a supported object.
func readinessOf(obj ctrlclient.Object) (conditions.ConditionSet, conditions.Conditions, error) {
	switch o := obj.(type) {
	case *apiv1alpha1.DeviceProcess:
		return o.Status.GetConditionSet(), o.Status.Conditions, nil
	case *apiv1alpha1.DeviceProcessDeployment:
		return o.Status.GetConditionSet(), o.Status.Conditions, nil
	default:
		return conditions.ConditionSet{}, nil, fmt.Errorf("unsupported object %T", obj)
	}
}
