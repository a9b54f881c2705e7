package client

import (
	"fmt"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

// Scheme knows the core types and the DeviceProcess API.
var Scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(Scheme))
	utilruntime.Must(apiv1alpha1.AddToScheme(Scheme))
}

// New returns a client for the cluster selected by kubeconfig and kubeContext. An empty
// kubeconfig falls back to controller-runtime's lookup ($KUBECONFIG, in-cluster, ~/.kube/config).
func New(kubeconfig, kubeContext string) (ctrlclient.Client, error) {
	cfg, err := restConfig(kubeconfig, kubeContext)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	c, err := ctrlclient.New(cfg, ctrlclient.Options{Scheme: Scheme})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func restConfig(kubeconfig, kubeContext string) (*rest.Config, error) {
	if kubeconfig == "" {
		return config.GetConfigWithContext(kubeContext)
	}
	rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
}
