/*
 * backend/cluster/credentials.go
 *
 * Credential context for the active cluster.
 * - Lazily builds the client bundle and rebuilds it on demand.
 * - Coalesces concurrent refreshes of the same generation.
 * - Owns the CRD existence cache.
 */

package cluster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"

	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

const logSource = "ClusterAuth"

// Options configures a Credentials instance.
type Options struct {
	Source Source
	// Build defaults to BuildFromKubeconfig.
	Build     BuildFunc
	Logger    common.Logger
	Auth      *authstate.Manager
	Telemetry *telemetry.Recorder
}

// Credentials holds the connection configuration and the current client bundle.
// Callers read the bundle through Clients for every call and never keep it.
type Credentials struct {
	mu         sync.RWMutex
	source     Source
	current    *Clients
	generation uint64

	build     BuildFunc
	logger    common.Logger
	auth      *authstate.Manager
	telemetry *telemetry.Recorder

	refreshGroup singleflight.Group

	crdMu sync.RWMutex
	crds  map[string]bool
	// crdEpoch moves on every invalidation; a lookup only stores its answer
	// if the epoch it started in is still current.
	crdEpoch uint64
	crdGroup singleflight.Group
}

// New returns a Credentials that builds its first bundle on first use.
func New(opts Options) *Credentials {
	build := opts.Build
	if build == nil {
		build = BuildFromKubeconfig
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.NoopLogger{}
	}
	return &Credentials{
		source:    opts.Source,
		build:     build,
		logger:    logger,
		auth:      opts.Auth,
		telemetry: opts.Telemetry,
		crds:      make(map[string]bool),
	}
}

// Source returns the active connection configuration.
func (c *Credentials) Source() Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Generation returns the generation of the current bundle, or 0 before the
// first build.
func (c *Credentials) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Auth returns the auth state manager, which may be nil.
func (c *Credentials) Auth() *authstate.Manager {
	return c.auth
}

// Clients returns the current bundle, building it on first use.
func (c *Credentials) Clients(ctx context.Context) (*Clients, error) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()
	if current != nil {
		return current, nil
	}
	return c.rebuild(ctx, 0, "initial connection", false)
}

// Refresh replaces the bundle that produced an auth failure. If stale is no
// longer current another caller already refreshed it and the current bundle is
// returned as is. A nil stale forces a rebuild.
func (c *Credentials) Refresh(ctx context.Context, stale *Clients, reason string) (*Clients, error) {
	var staleGen uint64
	if stale != nil {
		staleGen = stale.Generation
		c.mu.RLock()
		current := c.current
		c.mu.RUnlock()
		if current != nil && current.Generation != staleGen {
			return current, nil
		}
	} else {
		staleGen = c.Generation()
	}
	return c.rebuild(ctx, staleGen, reason, false)
}

// Reload swaps the connection configuration, rebuilds the bundle and drops
// the CRD existence cache, since the target cluster may have changed.
func (c *Credentials) Reload(ctx context.Context, src Source) error {
	c.mu.Lock()
	c.source = src
	gen := c.generation
	c.mu.Unlock()

	_, err := c.rebuild(ctx, gen, "kubeconfig reloaded", true)
	// After the new bundle is installed, so no lookup can refill the cache
	// from the previous cluster.
	c.InvalidateCRDCache()
	return err
}

// rebuild builds a new bundle unless the generation moved past staleGen while
// waiting. Forced rebuilds always build and use a separate flight so a reload
// never joins a refresh that captured the previous source.
func (c *Credentials) rebuild(ctx context.Context, staleGen uint64, reason string, force bool) (*Clients, error) {
	key := strconv.FormatUint(staleGen, 10)
	if force {
		key = "reload"
	}
	ch := c.refreshGroup.DoChan(key, func() (any, error) {
		c.mu.RLock()
		current, src := c.current, c.source
		c.mu.RUnlock()
		if !force && current != nil && current.Generation != staleGen {
			return current, nil
		}

		if current != nil {
			c.logger.Info(fmt.Sprintf("Refreshing cluster credentials for %s: %s", src, reason), logSource)
			if c.auth != nil {
				c.auth.BeginRefresh()
			}
		}

		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.RequestTimeout)
		defer cancel()
		next, err := c.build(buildCtx, src, c.auth)
		if err == nil && next == nil {
			err = errors.New("client builder returned no clients")
		}

		if current != nil {
			if c.auth != nil {
				c.auth.EndRefresh(err)
			}
			c.telemetry.RecordCredentialRefresh(reason, err)
		}
		if err != nil {
			c.logger.Error(fmt.Sprintf("Failed to build cluster clients for %s: %v", src, err), logSource)
			return nil, err
		}

		c.mu.Lock()
		c.generation++
		next.Generation = c.generation
		previous := c.current
		c.current = next
		c.mu.Unlock()

		if previous != nil {
			previous.stale.Store(true)
		}
		klog.V(2).InfoS("cluster clients rebuilt", "source", src.String(), "generation", next.Generation, "reason", reason)
		return next, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Clients), nil
	}
}
