package generic

import (
	"context"

	"github.com/luxury-yacht/dashboard/backend/watchstream"
)

// Accessor is the type-erased view of a Service used by the registry and the
// HTTP layer.
type Accessor interface {
	Info() KindInfo
	List(ctx context.Context, namespace string) (any, error)
	Get(ctx context.Context, namespace, name string) (any, error)
	Delete(ctx context.Context, namespace, name string) error
	Manifest(ctx context.Context, namespace, name string) (string, error)
	UpdateManifest(ctx context.Context, namespace, name, manifest string) (any, error)
	Stream(ctx context.Context, namespace string, onEvent func(watchstream.Event[any]), onError func(error)) (func(), error)
}

type accessor[L, D any] struct {
	svc *Service[L, D]
}

// Accessor erases the row and detail types.
func (s *Service[L, D]) Accessor() Accessor {
	return accessor[L, D]{svc: s}
}

func (a accessor[L, D]) Info() KindInfo {
	return a.svc.kind.Info()
}

func (a accessor[L, D]) List(ctx context.Context, namespace string) (any, error) {
	rows, err := a.svc.List(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a accessor[L, D]) Get(ctx context.Context, namespace, name string) (any, error) {
	detail, err := a.svc.Get(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (a accessor[L, D]) Delete(ctx context.Context, namespace, name string) error {
	return a.svc.Delete(ctx, namespace, name)
}

func (a accessor[L, D]) Manifest(ctx context.Context, namespace, name string) (string, error) {
	return a.svc.Manifest(ctx, namespace, name)
}

func (a accessor[L, D]) UpdateManifest(ctx context.Context, namespace, name, manifest string) (any, error) {
	detail, err := a.svc.UpdateManifest(ctx, namespace, name, manifest)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (a accessor[L, D]) Stream(ctx context.Context, namespace string, onEvent func(watchstream.Event[any]), onError func(error)) (func(), error) {
	return a.svc.Stream(ctx, namespace, func(ev watchstream.Event[L]) {
		onEvent(watchstream.Event[any]{Type: ev.Type, Object: ev.Object})
	}, onError)
}
