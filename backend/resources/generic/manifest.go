package generic

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/yaml"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
)

const lastAppliedAnnotation = "kubectl.kubernetes.io/last-applied-configuration"

// bookkeeping fields the API server owns; they are hidden from manifests.
var serverManagedFields = [][]string{
	{"metadata", "managedFields"},
	{"metadata", "resourceVersion"},
	{"metadata", "uid"},
	{"metadata", "generation"},
	{"metadata", "creationTimestamp"},
	{"metadata", "selfLink"},
}

// Sanitize returns a copy of obj without server bookkeeping.
func Sanitize(obj *unstructured.Unstructured) *unstructured.Unstructured {
	out := obj.DeepCopy()
	for _, path := range serverManagedFields {
		unstructured.RemoveNestedField(out.Object, path...)
	}
	if annotations := out.GetAnnotations(); annotations != nil {
		delete(annotations, lastAppliedAnnotation)
		if len(annotations) == 0 {
			unstructured.RemoveNestedField(out.Object, "metadata", "annotations")
		} else {
			out.SetAnnotations(annotations)
		}
	}
	return out
}

// Manifest renders the sanitized object as YAML. metadata.resourceVersion is
// kept so an edited copy can be checked against the live object.
func (s *Service[L, D]) Manifest(ctx context.Context, namespace, name string) (string, error) {
	obj, err := s.getRaw(ctx, namespace, name)
	if err != nil {
		return "", err
	}
	rendered := Sanitize(obj)
	if rv := obj.GetResourceVersion(); rv != "" {
		rendered.SetResourceVersion(rv)
	}
	out, err := yaml.Marshal(rendered.Object)
	if err != nil {
		return "", fmt.Errorf("failed to render %s %s: %w", s.kind.Name, name, err)
	}
	return string(out), nil
}

func (s *Service[L, D]) parseManifest(namespace, name, manifest string) (*unstructured.Unstructured, error) {
	raw, err := yaml.YAMLToJSON([]byte(manifest))
	if err != nil {
		return nil, apperrors.NewValidation("manifest", "invalid YAML: %v", err)
	}
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil || content == nil {
		return nil, apperrors.NewValidation("manifest", "manifest must be a single object")
	}
	edited := &unstructured.Unstructured{Object: content}

	wantAPIVersion := s.kind.GVR.GroupVersion().String()
	switch {
	case edited.GetKind() != s.kind.Name:
		return nil, apperrors.NewValidation("kind", "manifest kind %q does not match %s", edited.GetKind(), s.kind.Name)
	case edited.GetAPIVersion() != wantAPIVersion:
		return nil, apperrors.NewValidation("apiVersion", "manifest apiVersion %q does not match %s", edited.GetAPIVersion(), wantAPIVersion)
	case edited.GetName() != name:
		return nil, apperrors.NewValidation("name", "manifest name %q does not match %s", edited.GetName(), name)
	case s.kind.Namespaced && edited.GetNamespace() != "" && edited.GetNamespace() != namespace:
		return nil, apperrors.NewValidation("namespace", "manifest namespace %q does not match %s", edited.GetNamespace(), namespace)
	}
	sanitized := Sanitize(edited)
	if rv := edited.GetResourceVersion(); rv != "" {
		sanitized.SetResourceVersion(rv)
	}
	return sanitized, nil
}

// UpdateManifest applies an edited manifest as a JSON merge patch computed
// against the sanitized live object, then returns the updated detail view.
// The manifest's resourceVersion must match the live object and is sent with
// the patch, so an edit made against a stale copy fails with a ConflictError.
func (s *Service[L, D]) UpdateManifest(ctx context.Context, namespace, name, manifest string) (D, error) {
	var zero D
	if err := s.validateObjectRef(namespace, name); err != nil {
		return zero, err
	}
	edited, err := s.parseManifest(namespace, name, manifest)
	if err != nil {
		return zero, err
	}
	if err := s.gate(ctx); err != nil {
		return zero, err
	}
	namespace = s.scope(namespace)
	if s.kind.Namespaced {
		edited.SetNamespace(namespace)
	}

	updated, err := cluster.Do(ctx, s.deps.Credentials, "patch "+s.kind.GVR.Resource, func(ctx context.Context, clients *cluster.Clients) (*unstructured.Unstructured, error) {
		resource := s.resource(clients, namespace)
		live, err := resource.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		if err := s.checkResourceVersion(live, edited); err != nil {
			return nil, err
		}
		base := Sanitize(live)
		base.SetResourceVersion(live.GetResourceVersion())
		original, err := json.Marshal(base.Object)
		if err != nil {
			return nil, err
		}
		modified, err := json.Marshal(edited.Object)
		if err != nil {
			return nil, err
		}
		patch, err := jsonpatch.CreateMergePatch(original, modified)
		if err != nil {
			return nil, fmt.Errorf("failed to compute merge patch: %w", err)
		}
		if string(patch) == "{}" {
			return live, nil
		}
		if rv := live.GetResourceVersion(); rv != "" {
			// The API server rejects the patch with 409 if the object moved on.
			if patch, err = withResourceVersion(patch, rv); err != nil {
				return nil, err
			}
		}
		return resource.Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	})
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("Failed to update %s %s/%s: %v", s.kind.Name, namespace, name, err), logSource)
		return zero, apperrors.FromAPI(s.kind.Name, namespace, name, err)
	}

	s.deps.Logger.Info(fmt.Sprintf("Updated %s %s/%s from manifest", s.kind.Name, namespace, name), logSource)
	return s.kind.Detail(updated)
}

func (s *Service[L, D]) checkResourceVersion(live, edited *unstructured.Unstructured) error {
	current, tracked := live.GetResourceVersion(), edited.GetResourceVersion()
	switch {
	case current == "" && tracked == "":
		return nil
	case tracked == "":
		return apperrors.NewValidation("resourceVersion", "metadata.resourceVersion must be present in the manifest to prevent overwrites")
	case tracked != current:
		return &apperrors.ConflictError{
			Resource: s.kind.Name,
			Message:  fmt.Sprintf("object has changed since it was read: current resourceVersion is %s, manifest has %s", current, tracked),
		}
	}
	return nil
}

func withResourceVersion(patch []byte, rv string) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(patch, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode merge patch: %w", err)
	}
	if err := unstructured.SetNestedField(doc, rv, "metadata", "resourceVersion"); err != nil {
		return nil, fmt.Errorf("failed to set resourceVersion precondition: %w", err)
	}
	return json.Marshal(doc)
}
