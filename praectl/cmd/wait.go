package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/types"
)

var (
	waitTimeout  time.Duration
	waitInterval = 2 * time.Second
)

var waitCmd = &cobra.Command{
	Use:   "wait KIND NAME",
	Short: "Wait until a resource reports Ready",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		obj, err := newObjectForKind(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
		defer cancel()

		ticker := time.NewTicker(waitInterval)
		defer ticker.Stop()

		key := types.NamespacedName{Namespace: namespace, Name: args[1]}
		last := ""
		for {
			if err := c.Get(ctx, key, obj); err != nil {
				return err
			}
			set, conds, err := readinessOf(obj)
			if err != nil {
				return err
			}

			ready := conds.Get(set.Happy())
			line := fmt.Sprintf("%s %s=<not reported>", key.Name, set.Happy())
			if ready != nil {
				line = fmt.Sprintf("%s %s=%s reason=%s %s", key.Name, set.Happy(), valueOrDash(string(ready.Status)), valueOrDash(ready.Reason), ready.Message)
			}
			if line != last {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", time.Now().Format(time.RFC3339), line)
				last = line
			}
			if ready.IsTrue() {
				return nil
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return fmt.Errorf("timed out waiting for %s to become %s", key, set.Happy())
			}
		}
	},
}

func init() {
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 5*time.Minute, "How long to wait")
	rootCmd.AddCommand(waitCmd)
}
