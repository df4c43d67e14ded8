/*
 * backend/cluster/clients.go
 *
 * Client bundle construction.
 * - Loads a rest.Config from a kubeconfig path/context.
 * - Builds every typed, dynamic and extension client from one config.
 */

package cluster

import (
	"context"
	"fmt"
	"sync/atomic"

	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
)

// Source identifies the connection configuration: a kubeconfig file and an
// optional context override. An empty path uses the default loading rules.
type Source struct {
	KubeconfigPath string
	Context        string
}

func (s Source) String() string {
	path := s.KubeconfigPath
	if path == "" {
		path = "<default>"
	}
	if s.Context == "" {
		return path
	}
	return path + ":" + s.Context
}

// Clients is one generation of API clients. A bundle is replaced wholesale on
// refresh; the replaced bundle reports Stale.
type Clients struct {
	Kubernetes    kubernetes.Interface
	Dynamic       dynamic.Interface
	APIExtensions apiextensionsclientset.Interface
	Metrics       metricsclient.Interface
	RestConfig    *rest.Config
	Generation    uint64

	stale atomic.Bool
}

// Stale reports whether a newer bundle has replaced this one.
func (c *Clients) Stale() bool {
	return c.stale.Load()
}

// BuildFunc produces a fresh client bundle for a source. The auth manager, when
// non-nil, should observe every request the bundle makes.
type BuildFunc func(ctx context.Context, src Source, auth *authstate.Manager) (*Clients, error)

// LoadRestConfig loads a REST config for the provided kubeconfig path/context.
func LoadRestConfig(src Source) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	loadingRules.ExplicitPath = src.KubeconfigPath
	overrides := &clientcmd.ConfigOverrides{}
	if src.Context != "" {
		overrides.CurrentContext = src.Context
	}

	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)
	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build config from %s: %w", src, err)
	}

	restConfig.QPS = config.ClientQPS
	restConfig.Burst = config.ClientBurst
	return restConfig, nil
}

// NewClients builds every client in the bundle from restConfig.
func NewClients(restConfig *rest.Config) (*Clients, error) {
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	apiextensionsClient, err := apiextensionsclientset.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create apiextensions clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	metrics, err := metricsclient.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return &Clients{
		Kubernetes:    clientset,
		Dynamic:       dynamicClient,
		APIExtensions: apiextensionsClient,
		Metrics:       metrics,
		RestConfig:    restConfig,
	}, nil
}

// BuildFromKubeconfig is the default BuildFunc. It installs the auth-aware
// transport so 401 responses surface as authstate.AuthInvalidError.
func BuildFromKubeconfig(_ context.Context, src Source, auth *authstate.Manager) (*Clients, error) {
	restConfig, err := LoadRestConfig(src)
	if err != nil {
		return nil, err
	}
	if auth != nil {
		restConfig.Wrap(auth.WrapTransport)
	}
	return NewClients(restConfig)
}
