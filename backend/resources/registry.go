/*
 * backend/resources/registry.go
 *
 * Kind registry.
 * - Maps lower-case kind names, plurals and short names to accessors.
 * - Warms the CRD existence cache for CRD-backed kinds.
 */

package resources

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/parallel"
	"github.com/luxury-yacht/dashboard/backend/resources/apiextensions"
	"github.com/luxury-yacht/dashboard/backend/resources/autoscaling"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
	resconfig "github.com/luxury-yacht/dashboard/backend/resources/config"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	"github.com/luxury-yacht/dashboard/backend/resources/metrics"
	"github.com/luxury-yacht/dashboard/backend/resources/network"
	"github.com/luxury-yacht/dashboard/backend/resources/nodepools"
	"github.com/luxury-yacht/dashboard/backend/resources/rbac"
	"github.com/luxury-yacht/dashboard/backend/resources/storage"
)

// Registry resolves kind names to type-erased resource services.
type Registry struct {
	deps generic.Dependencies

	mu        sync.RWMutex
	byName    map[string]generic.Accessor
	accessors []generic.Accessor

	// Metrics is kept typed for the namespace usage summary.
	Metrics *metrics.Service
}

// NewRegistry builds the registry with every built-in kind.
func NewRegistry(deps generic.Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = common.NoopLogger{}
	}
	r := &Registry{
		deps:    deps,
		byName:  make(map[string]generic.Accessor),
		Metrics: metrics.NewService(deps),
	}

	groups := [][]generic.Accessor{
		resconfig.NewService(deps).Accessors(),
		rbac.NewService(deps).Accessors(),
		storage.NewService(deps).Accessors(),
		network.NewService(deps).Accessors(),
		autoscaling.NewService(deps).Accessors(),
		nodepools.NewService(deps).Accessors(),
		apiextensions.NewService(deps).Accessors(),
		r.Metrics.Accessors(),
	}
	for _, group := range groups {
		for _, accessor := range group {
			if err := r.Register(accessor); err != nil {
				// Built-in names are fixed; a clash is a programming error.
				panic(err)
			}
		}
	}
	return r
}

func registryKeys(info generic.KindInfo) []string {
	keys := []string{strings.ToLower(info.Name), strings.ToLower(info.Resource)}
	for _, alias := range info.Aliases {
		keys = append(keys, strings.ToLower(alias))
	}
	return keys
}

// Register adds an accessor under its kind name, resource plural and aliases.
func (r *Registry) Register(accessor generic.Accessor) error {
	info := accessor.Info()
	keys := registryKeys(info)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		if existing, ok := r.byName[key]; ok && existing.Info().Name != info.Name {
			return fmt.Errorf("resource name %q is already registered for %s", key, existing.Info().Name)
		}
	}
	for _, key := range keys {
		r.byName[key] = accessor
	}
	r.accessors = append(r.accessors, accessor)
	return nil
}

// Lookup resolves a case-insensitive kind name, plural or alias.
func (r *Registry) Lookup(name string) (generic.Accessor, error) {
	r.mu.RLock()
	accessor, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, &apperrors.NotFoundError{Kind: "resource kind", Name: name}
	}
	return accessor, nil
}

// Kinds describes every registered kind, sorted by name.
func (r *Registry) Kinds() []generic.KindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]generic.KindInfo, 0, len(r.accessors))
	for _, accessor := range r.accessors {
		out = append(out, accessor.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Prime looks up every CRD a registered kind depends on so the first request
// for that kind does not pay for the lookup. Failed lookups are logged and
// left uncached.
func (r *Registry) Prime(ctx context.Context) {
	seen := make(map[string]bool)
	var crds []string
	for _, info := range r.Kinds() {
		if info.CRD != "" && !seen[info.CRD] {
			seen[info.CRD] = true
			crds = append(crds, info.CRD)
		}
	}

	_ = parallel.ForEach(ctx, crds, config.CRDPrimeParallelism, func(ctx context.Context, crd string) error {
		exists, err := r.deps.Credentials.CRDExists(ctx, crd)
		if err != nil {
			r.deps.Logger.Warn(fmt.Sprintf("Failed to check CRD %s: %v", crd, err), "ResourceLoader")
			return nil
		}
		r.deps.Logger.Debug(fmt.Sprintf("CRD %s installed: %t", crd, exists), "ResourceLoader")
		return nil
	})
}
