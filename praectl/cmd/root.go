package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/apollo/readiness/praectl/pkg/client"
)

var (
	kubeconfig  string
	kubeContext string
	namespace   string
)

var rootCmd = &cobra.Command{
	Use:          "praectl",
	Short:        "Inspect the readiness of Praetor device processes",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	rootCmd.PersistentFlags().StringVar(&kubeContext, "context", "", "Kubeconfig context to use")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the resource")
}

// newClient is swapped out in tests.
var newClient = func() (ctrlclient.Client, error) {
	return client.New(kubeconfig, kubeContext)
}
