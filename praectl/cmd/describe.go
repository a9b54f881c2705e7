package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/apollo/readiness/pkg/conditions"
	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

var describeFile string

var describeCmd = &cobra.Command{
	Use:   "describe (-f FILE | KIND NAME)",
	Short: "Show the conditions and readiness of a DeviceProcess or DeviceProcessDeployment",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var obj ctrlclient.Object
		switch {
		case describeFile != "" && len(args) > 0:
			return fmt.Errorf("cannot combine -f with a resource name")
		case describeFile != "":
			data, err := readManifest(cmd, describeFile)
			if err != nil {
				return err
			}
			if obj, err = decodeManifest(data); err != nil {
				return err
			}
		case len(args) == 2:
			var err error
			if obj, err = newObjectForKind(args[0]); err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Get(cmd.Context(), types.NamespacedName{Namespace: namespace, Name: args[1]}, obj); err != nil {
				return err
			}
		default:
			return fmt.Errorf("expected KIND NAME or -f FILE")
		}

		return describeObject(cmd.OutOrStdout(), obj, time.Now())
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeFile, "filename", "f", "", "Manifest to describe, or - for stdin")
	rootCmd.AddCommand(describeCmd)
}

func readManifest(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// decodeManifest picks the target type from the manifest's kind.
func decodeManifest(data []byte) (ctrlclient.Object, error) {
	var meta metav1.TypeMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	obj, err := newObjectForKind(meta.Kind)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", meta.Kind, err)
	}
	return obj, nil
}

func describeObject(w io.Writer, obj ctrlclient.Object, now time.Time) error {
	set, conds, err := readinessOf(obj)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", obj.GetName())
	fmt.Fprintf(tw, "Namespace:\t%s\n", valueOrDash(obj.GetNamespace()))

	switch o := obj.(type) {
	case *apiv1alpha1.DeviceProcess:
		fmt.Fprintf(tw, "Kind:\tDeviceProcess\n")
		fmt.Fprintf(tw, "Device:\t%s/%s\n", o.Spec.DeviceRef.Kind, o.Spec.DeviceRef.Name)
		fmt.Fprintf(tw, "Phase:\t%s\n", valueOrDash(string(o.Status.Phase)))
		if o.Status.PID != 0 {
			fmt.Fprintf(tw, "PID:\t%d\n", o.Status.PID)
		}
		fmt.Fprintf(tw, "Observed Spec Hash:\t%s\n", valueOrDash(o.Status.ObservedSpecHash))
		fmt.Fprintf(tw, "Observed Generation:\t%d\n", o.Status.ObservedGeneration)
	case *apiv1alpha1.DeviceProcessDeployment:
		fmt.Fprintf(tw, "Kind:\tDeviceProcessDeployment\n")
		fmt.Fprintf(tw, "Selector:\t%s\n", formatSelector(o.Spec.Selector.MatchLabels))
		fmt.Fprintf(tw, "Processes:\t%d desired, %d ready, %d unavailable\n",
			o.Status.DesiredNumberScheduled, o.Status.NumberReady, o.Status.NumberUnavailable)
		fmt.Fprintf(tw, "Observed Generation:\t%d\n", o.Status.ObservedGeneration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if err := printConditions(w, set, conds, now); err != nil {
		return err
	}

	fmt.Fprintln(w)
	ready := conds.Get(set.Happy())
	switch {
	case ready == nil:
		fmt.Fprintf(w, "%s: <not reported>\n", set.Happy())
	case ready.IsTrue():
		fmt.Fprintf(w, "%s: True\n", set.Happy())
	default:
		fmt.Fprintf(w, "%s: %s (%s) %s\n", set.Happy(), valueOrDash(string(ready.Status)), valueOrDash(ready.Reason), ready.Message)
	}
	return nil
}

// printConditions renders the store in its own order, tagging each type with its role in the set.
func printConditions(w io.Writer, set conditions.ConditionSet, conds conditions.Conditions, now time.Time) error {
	if len(conds) == 0 {
		fmt.Fprintln(w, "Conditions: <none>")
		return nil
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tROLE\tSTATUS\tSEVERITY\tREASON\tAGE\tMESSAGE")
	for i := range conds {
		c := &conds[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Type,
			roleOf(set, c.Type),
			valueOrDash(string(c.Status)),
			severityOf(c.Severity),
			valueOrDash(c.Reason),
			age(c.LastTransitionTime, now),
			valueOrDash(c.Message),
		)
	}
	return tw.Flush()
}

func roleOf(set conditions.ConditionSet, t conditions.ConditionType) string {
	switch {
	case t == set.Happy():
		return "happy"
	case set.IsDependent(t):
		return "dependent"
	default:
		return "info"
	}
}

func severityOf(s conditions.ConditionSeverity) string {
	if s == conditions.ConditionSeverityError {
		return "Error"
	}
	return string(s)
}
