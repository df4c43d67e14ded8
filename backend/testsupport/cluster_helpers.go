package testsupport

import (
	"context"
	"sync/atomic"
	"testing"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
)

// Cluster wires fake clientsets behind a real *cluster.Credentials. Every
// rebuild hands out the same fakes, so seeded state survives refreshes.
type Cluster struct {
	Kube          *kubefake.Clientset
	Dynamic       *dynamicfake.FakeDynamicClient
	APIExtensions *apiextensionsfake.Clientset
	Metrics       *metricsfake.Clientset
	Telemetry     *telemetry.Recorder
	Auth          *authstate.Manager
	Logger        *RecordingLogger
	Credentials   *cluster.Credentials

	builds atomic.Int32
}

// Builds reports how many client bundles the credentials have built.
func (c *Cluster) Builds() int {
	return int(c.builds.Load())
}

// ClusterOption seeds a fake cluster.
type ClusterOption func(*clusterConfig)

type clusterConfig struct {
	kube      []runtime.Object
	dynamic   []runtime.Object
	listKinds map[schema.GroupVersionResource]string
	crds      []runtime.Object
	metrics   []*metricsv1beta1.PodMetrics
}

// WithKubeObjects seeds the typed clientset.
func WithKubeObjects(objects ...runtime.Object) ClusterOption {
	return func(c *clusterConfig) {
		c.kube = append(c.kube, objects...)
	}
}

// WithDynamicObjects seeds the dynamic client. Typed objects are converted to
// unstructured and must carry their TypeMeta.
func WithDynamicObjects(objects ...runtime.Object) ClusterOption {
	return func(c *clusterConfig) {
		c.dynamic = append(c.dynamic, objects...)
	}
}

// WithListKinds registers the list kind for each resource the test will list
// or watch through the dynamic client.
func WithListKinds(kinds map[schema.GroupVersionResource]string) ClusterOption {
	return func(c *clusterConfig) {
		for gvr, kind := range kinds {
			c.listKinds[gvr] = kind
		}
	}
}

// WithCRDs installs CRDs into the apiextensions clientset.
func WithCRDs(crds ...*apiextensionsv1.CustomResourceDefinition) ClusterOption {
	return func(c *clusterConfig) {
		for _, crd := range crds {
			c.crds = append(c.crds, crd)
		}
	}
}

// WithPodMetrics seeds the metrics clientset.
func WithPodMetrics(metrics ...*metricsv1beta1.PodMetrics) ClusterOption {
	return func(c *clusterConfig) {
		c.metrics = append(c.metrics, metrics...)
	}
}

// NewCluster builds the fakes and a Credentials that serves them.
func NewCluster(t testing.TB, opts ...ClusterOption) *Cluster {
	t.Helper()

	cfg := &clusterConfig{listKinds: map[schema.GroupVersionResource]string{}}
	for _, opt := range opts {
		opt(cfg)
	}

	dynamicObjects := make([]runtime.Object, 0, len(cfg.dynamic))
	for _, obj := range cfg.dynamic {
		dynamicObjects = append(dynamicObjects, ToUnstructured(t, obj))
	}

	c := &Cluster{
		Kube:          kubefake.NewClientset(cfg.kube...),
		Dynamic:       dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), cfg.listKinds, dynamicObjects...),
		APIExtensions: apiextensionsfake.NewSimpleClientset(cfg.crds...),
		Metrics:       metricsfake.NewSimpleClientset(),
		Telemetry:     telemetry.NewRecorder(),
		Auth:          authstate.New(authstate.Config{}),
		Logger:        &RecordingLogger{},
	}
	// PodMetrics are served as "pods"; the tracker cannot guess that from the kind.
	podMetrics := metricsv1beta1.SchemeGroupVersion.WithResource("pods")
	for _, m := range cfg.metrics {
		if err := c.Metrics.Tracker().Create(podMetrics, m, m.Namespace); err != nil {
			t.Fatalf("failed to seed pod metrics %s/%s: %v", m.Namespace, m.Name, err)
		}
	}

	c.Credentials = cluster.New(cluster.Options{
		Source:    cluster.Source{KubeconfigPath: "/tmp/testsupport-kubeconfig", Context: "test"},
		Build:     c.Build,
		Logger:    c.Logger,
		Auth:      c.Auth,
		Telemetry: c.Telemetry,
	})
	return c
}

// Build serves the fakes as a client bundle; it satisfies cluster.BuildFunc.
func (c *Cluster) Build(context.Context, cluster.Source, *authstate.Manager) (*cluster.Clients, error) {
	c.builds.Add(1)
	return &cluster.Clients{
		Kubernetes:    c.Kube,
		Dynamic:       c.Dynamic,
		APIExtensions: c.APIExtensions,
		Metrics:       c.Metrics,
		RestConfig:    &rest.Config{Host: "https://cluster.test"},
	}, nil
}

// ToUnstructured converts a typed object into its unstructured form.
func ToUnstructured(t testing.TB, obj runtime.Object) *unstructured.Unstructured {
	t.Helper()
	if u, ok := obj.(*unstructured.Unstructured); ok {
		return u
	}
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		t.Fatalf("failed to convert %T to unstructured: %v", obj, err)
	}
	u := &unstructured.Unstructured{Object: content}
	if u.GetKind() == "" {
		t.Fatalf("%T fixture is missing its TypeMeta", obj)
	}
	return u
}

// AddDynamic stores obj under an explicit resource. Use it when the resource
// name cannot be guessed from the kind, e.g. PodMetrics served as "pods".
func (c *Cluster) AddDynamic(t testing.TB, gvr schema.GroupVersionResource, obj runtime.Object) {
	t.Helper()
	u := ToUnstructured(t, obj)
	if err := c.Dynamic.Tracker().Create(gvr, u, u.GetNamespace()); err != nil {
		t.Fatalf("failed to seed %s %s: %v", gvr.Resource, u.GetName(), err)
	}
}
