/*
 * backend/resources/generic/generic.go
 *
 * Generic resource service.
 * - One implementation of list/get/delete/manifest/stream for every kind.
 * - Kinds are configuration records (GVR plus projectors).
 * - Every cluster call runs through the auth retry wrapper.
 */

package generic

import (
	"context"
	"fmt"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/watchstream"
)

const logSource = "ResourceLoader"

// Service serves one resource kind.
type Service[L, D any] struct {
	deps Dependencies
	kind Kind[L, D]
}

// NewService binds kind to the shared dependencies.
func NewService[L, D any](deps Dependencies, kind Kind[L, D]) *Service[L, D] {
	if deps.Logger == nil {
		deps.Logger = common.NoopLogger{}
	}
	return &Service[L, D]{deps: deps, kind: kind}
}

// Kind returns the configuration record.
func (s *Service[L, D]) Kind() Kind[L, D] {
	return s.kind
}

func (s *Service[L, D]) resource(clients *cluster.Clients, namespace string) dynamic.ResourceInterface {
	client := clients.Dynamic.Resource(s.kind.GVR)
	if s.kind.Namespaced && namespace != "" {
		return client.Namespace(namespace)
	}
	return client
}

// gate fails with UnavailableFeatureError when the kind's CRD is missing.
func (s *Service[L, D]) gate(ctx context.Context) error {
	if s.kind.CRD == "" {
		return nil
	}
	exists, err := s.deps.Credentials.CRDExists(ctx, s.kind.CRD)
	if err != nil {
		return err
	}
	if !exists {
		feature := s.kind.Feature
		if feature == "" {
			feature = s.kind.Name
		}
		return &apperrors.UnavailableFeatureError{Feature: feature, CRD: s.kind.CRD}
	}
	return nil
}

func (s *Service[L, D]) validateObjectRef(namespace, name string) error {
	if name == "" {
		return apperrors.NewValidation("name", "%s name is required", s.kind.Name)
	}
	if s.kind.Namespaced && namespace == "" {
		return apperrors.NewValidation("namespace", "%s is namespaced; namespace is required", s.kind.Name)
	}
	return nil
}

func (s *Service[L, D]) scope(namespace string) string {
	if !s.kind.Namespaced {
		return ""
	}
	return namespace
}

// List returns list rows for namespace, or for all namespaces when namespace
// is empty. Objects that fail to project are logged and skipped.
func (s *Service[L, D]) List(ctx context.Context, namespace string) ([]L, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	namespace = s.scope(namespace)

	list, err := cluster.Do(ctx, s.deps.Credentials, "list "+s.kind.GVR.Resource, func(ctx context.Context, clients *cluster.Clients) (*unstructured.UnstructuredList, error) {
		return s.resource(clients, namespace).List(ctx, metav1.ListOptions{})
	})
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("Failed to list %s in namespace %q: %v", s.kind.GVR.Resource, namespace, err), logSource)
		return nil, apperrors.FromAPI(s.kind.Name, namespace, "", err)
	}

	items := list.Items
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].GetNamespace() != items[j].GetNamespace() {
			return items[i].GetNamespace() < items[j].GetNamespace()
		}
		return items[i].GetName() < items[j].GetName()
	})

	out := make([]L, 0, len(items))
	for i := range items {
		row, err := s.kind.ListItem(&items[i])
		if err != nil {
			s.deps.Logger.Warn(fmt.Sprintf("Skipping %s %s/%s: %v", s.kind.Name, items[i].GetNamespace(), items[i].GetName(), err), logSource)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service[L, D]) getRaw(ctx context.Context, namespace, name string) (*unstructured.Unstructured, error) {
	if err := s.validateObjectRef(namespace, name); err != nil {
		return nil, err
	}
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	namespace = s.scope(namespace)

	obj, err := cluster.Do(ctx, s.deps.Credentials, "get "+s.kind.GVR.Resource, func(ctx context.Context, clients *cluster.Clients) (*unstructured.Unstructured, error) {
		return s.resource(clients, namespace).Get(ctx, name, metav1.GetOptions{})
	})
	if err != nil {
		return nil, apperrors.FromAPI(s.kind.Name, namespace, name, err)
	}
	return obj, nil
}

// Get returns the detail view of one object.
func (s *Service[L, D]) Get(ctx context.Context, namespace, name string) (D, error) {
	var zero D
	obj, err := s.getRaw(ctx, namespace, name)
	if err != nil {
		return zero, err
	}
	detail, err := s.kind.Detail(obj)
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("Failed to project %s %s/%s: %v", s.kind.Name, namespace, name, err), logSource)
		return zero, err
	}
	return detail, nil
}

// Delete removes one object.
func (s *Service[L, D]) Delete(ctx context.Context, namespace, name string) error {
	if err := s.validateObjectRef(namespace, name); err != nil {
		return err
	}
	if err := s.gate(ctx); err != nil {
		return err
	}
	namespace = s.scope(namespace)

	err := cluster.Run(ctx, s.deps.Credentials, "delete "+s.kind.GVR.Resource, func(ctx context.Context, clients *cluster.Clients) error {
		return s.resource(clients, namespace).Delete(ctx, name, metav1.DeleteOptions{})
	})
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("Failed to delete %s %s/%s: %v", s.kind.Name, namespace, name, err), logSource)
		return apperrors.FromAPI(s.kind.Name, namespace, name, err)
	}
	if namespace == "" {
		s.deps.Logger.Info(fmt.Sprintf("Deleted %s %s", s.kind.Name, name), logSource)
	} else {
		s.deps.Logger.Info(fmt.Sprintf("Deleted %s %s/%s", s.kind.Name, namespace, name), logSource)
	}
	return nil
}

// Stream relays list-row envelopes for namespace until ctx ends or the
// returned teardown is called. A projection failure on one event is reported
// through onError and the stream continues.
func (s *Service[L, D]) Stream(ctx context.Context, namespace string, onEvent func(watchstream.Event[L]), onError func(error)) (func(), error) {
	if !s.kind.Watchable {
		return nil, apperrors.NewValidation("kind", "%s does not support streaming", s.kind.Name)
	}
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	namespace = s.scope(namespace)

	resource := s.kind.GVR.Resource
	if namespace != "" {
		resource += " in " + namespace
	}
	sub, err := watchstream.Subscribe(ctx, s.deps.Credentials, watchstream.Config[L]{
		Resource: resource,
		Open: func(ctx context.Context, clients *cluster.Clients) (watch.Interface, error) {
			return s.resource(clients, namespace).Watch(ctx, metav1.ListOptions{})
		},
		Map: func(obj runtime.Object) (L, error) {
			var zero L
			u, ok := obj.(*unstructured.Unstructured)
			if !ok {
				return zero, fmt.Errorf("unexpected %T in %s watch", obj, s.kind.Name)
			}
			return s.kind.ListItem(u)
		},
		OnEvent:   onEvent,
		OnError:   onError,
		Logger:    s.deps.Logger,
		Telemetry: s.deps.Telemetry,
	})
	if err != nil {
		return nil, apperrors.FromAPI(s.kind.Name, namespace, "", err)
	}
	return sub.Unsubscribe, nil
}
