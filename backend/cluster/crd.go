package cluster

import (
	"context"
	"fmt"
	"strconv"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/luxury-yacht/dashboard/backend/config"
)

// CRDExists reports whether the named CustomResourceDefinition is installed.
// Answers are cached for the life of the connection configuration; lookup
// errors other than NotFound are returned and not cached.
func (c *Credentials) CRDExists(ctx context.Context, name string) (bool, error) {
	c.crdMu.RLock()
	exists, ok := c.crds[name]
	epoch := c.crdEpoch
	c.crdMu.RUnlock()
	if ok {
		return exists, nil
	}

	ch := c.crdGroup.DoChan(name+"@"+strconv.FormatUint(epoch, 10), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.CRDLookupTimeout)
		defer cancel()

		found, err := Do(lookupCtx, c, "lookup crd "+name, func(ctx context.Context, clients *Clients) (bool, error) {
			_, err := clients.APIExtensions.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, name, metav1.GetOptions{})
			switch {
			case err == nil:
				return true, nil
			case apierrors.IsNotFound(err):
				return false, nil
			default:
				return false, err
			}
		})
		if err != nil {
			return false, fmt.Errorf("failed to check custom resource definition %s: %w", name, err)
		}

		c.crdMu.Lock()
		if c.crdEpoch == epoch {
			c.crds[name] = found
		}
		c.crdMu.Unlock()
		if !found {
			c.logger.Info(fmt.Sprintf("Custom resource definition %s is not installed", name), "ResourceLoader")
		}
		return found, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// InvalidateCRDCache forgets every cached CRD answer.
func (c *Credentials) InvalidateCRDCache() {
	c.crdMu.Lock()
	c.crds = make(map[string]bool)
	c.crdEpoch++
	c.crdMu.Unlock()
}
