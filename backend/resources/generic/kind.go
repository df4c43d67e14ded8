package generic

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

// Dependencies are shared by every resource service.
type Dependencies struct {
	Credentials *cluster.Credentials
	Logger      common.Logger
	Telemetry   *telemetry.Recorder
}

// Kind is the configuration record for one resource kind: where it lives and
// how raw objects project into list rows (L) and detail views (D).
type Kind[L, D any] struct {
	// Name is the Kubernetes kind, e.g. "ConfigMap".
	Name string
	// Aliases are extra registry names such as short names.
	Aliases    []string
	GVR        schema.GroupVersionResource
	Namespaced bool
	// CRD names the CustomResourceDefinition that must be installed, if any.
	CRD string
	// Feature is the user-facing name reported when CRD is missing.
	Feature   string
	Watchable bool

	ListItem func(*unstructured.Unstructured) (L, error)
	Detail   func(*unstructured.Unstructured) (D, error)
}

// KindInfo is the type-erased description of a Kind.
type KindInfo struct {
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Version    string   `json:"version"`
	Resource   string   `json:"resource"`
	Namespaced bool     `json:"namespaced"`
	Watchable  bool     `json:"watchable"`
	CRD        string   `json:"crd,omitempty"`
	Feature    string   `json:"feature,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// Info describes the kind.
func (k Kind[L, D]) Info() KindInfo {
	return KindInfo{
		Name:       k.Name,
		Group:      k.GVR.Group,
		Version:    k.GVR.Version,
		Resource:   k.GVR.Resource,
		Namespaced: k.Namespaced,
		Watchable:  k.Watchable,
		CRD:        k.CRD,
		Feature:    k.Feature,
		Aliases:    k.Aliases,
	}
}

// Project adapts a projector over a typed object into one over unstructured
// input. T is the typed API struct, e.g. corev1.ConfigMap.
func Project[T, R any](fn func(*T) R) func(*unstructured.Unstructured) (R, error) {
	return func(u *unstructured.Unstructured) (R, error) {
		var zero R
		obj, err := FromUnstructured[T](u)
		if err != nil {
			return zero, err
		}
		return fn(obj), nil
	}
}

// FromUnstructured converts u into a typed object.
func FromUnstructured[T any](u *unstructured.Unstructured) (*T, error) {
	obj := new(T)
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, obj); err != nil {
		return nil, fmt.Errorf("failed to convert %s %s: %w", u.GetKind(), u.GetName(), err)
	}
	return obj, nil
}
