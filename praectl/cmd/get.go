package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/labels"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

var getSelector string

var getCmd = &cobra.Command{
	Use:   "get KIND",
	Short: "List DeviceProcesses or DeviceProcessDeployments with their readiness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obj, err := newObjectForKind(args[0])
		if err != nil {
			return err
		}
		selector, err := labels.Parse(getSelector)
		if err != nil {
			return fmt.Errorf("parse selector: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		opts := []ctrlclient.ListOption{
			ctrlclient.InNamespace(namespace),
			ctrlclient.MatchingLabelsSelector{Selector: selector},
		}
		now := time.Now()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)

		switch obj.(type) {
		case *apiv1alpha1.DeviceProcess:
			var list apiv1alpha1.DeviceProcessList
			if err := c.List(cmd.Context(), &list, opts...); err != nil {
				return err
			}
			if len(list.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No DeviceProcesses found")
				return nil
			}
			fmt.Fprintln(tw, "NAME\tDEVICE\tPHASE\tREADY\tREASON\tAGE")
			for i := range list.Items {
				p := &list.Items[i]
				ready := p.Status.GetCondition(apiv1alpha1.ConditionReady)
				status, reason := "-", "-"
				if ready != nil {
					status, reason = valueOrDash(string(ready.Status)), valueOrDash(ready.Reason)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.Name,
					p.Spec.DeviceRef.Name,
					valueOrDash(string(p.Status.Phase)),
					status,
					reason,
					age(&p.CreationTimestamp, now),
				)
			}
		case *apiv1alpha1.DeviceProcessDeployment:
			var list apiv1alpha1.DeviceProcessDeploymentList
			if err := c.List(cmd.Context(), &list, opts...); err != nil {
				return err
			}
			if len(list.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No DeviceProcessDeployments found")
				return nil
			}
			fmt.Fprintln(tw, "NAME\tDESIRED\tREADY\tSTATUS\tREASON\tSELECTOR")
			for i := range list.Items {
				d := &list.Items[i]
				ready := d.Status.GetCondition(apiv1alpha1.ConditionReady)
				status, reason := "-", "-"
				if ready != nil {
					status, reason = valueOrDash(string(ready.Status)), valueOrDash(ready.Reason)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
					d.Name,
					d.Status.DesiredNumberScheduled,
					d.Status.NumberReady,
					status,
					reason,
					formatSelector(d.Spec.Selector.MatchLabels),
				)
			}
		}
		return tw.Flush()
	},
}

func init() {
	getCmd.Flags().StringVarP(&getSelector, "selector", "l", "", "Label selector to filter on")
	rootCmd.AddCommand(getCmd)
}
