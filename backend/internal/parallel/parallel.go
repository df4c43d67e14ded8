// Package parallel runs bounded fan-out work on top of errgroup.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunLimited executes tasks with at most limit running at once. A limit <= 0
// means unbounded. Tasks share a context that is cancelled on the first error.
func RunLimited(ctx context.Context, limit int, tasks ...func(context.Context) error) error {
	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for _, task := range tasks {
		if task == nil {
			continue
		}
		group.Go(func() error { return task(ctx) })
	}
	return group.Wait()
}

// ForEach calls fn once per item under the same limit rules as RunLimited.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	if fn == nil || len(items) == 0 {
		return nil
	}
	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for _, item := range items {
		group.Go(func() error { return fn(ctx, item) })
	}
	return group.Wait()
}

// Map applies fn to every item and returns the results in input order.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for i, item := range items {
		group.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
