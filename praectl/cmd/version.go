package cmd

import (
	"fmt"

	"github.com/apollo/readiness/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the praectl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "praectl %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
