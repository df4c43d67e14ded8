package nodepools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	"github.com/luxury-yacht/dashboard/backend/resources/nodepools"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
	"github.com/luxury-yacht/dashboard/backend/testsupport"
)

func nodePool(name string, spec, status map[string]any) *unstructured.Unstructured {
	obj := map[string]any{
		"apiVersion": "karpenter.sh/v1",
		"kind":       "NodePool",
		"metadata":   map[string]any{"name": name},
		"spec":       spec,
	}
	if status != nil {
		obj["status"] = status
	}
	return &unstructured.Unstructured{Object: obj}
}

func generalPurpose() *unstructured.Unstructured {
	return nodePool("general", map[string]any{
		"weight": int64(10),
		"limits": map[string]any{"cpu": "1000", "memory": "1000Gi"},
		"disruption": map[string]any{
			"consolidationPolicy": "WhenEmptyOrUnderutilized",
			"consolidateAfter":    "1m",
			"budgets":             []any{map[string]any{"nodes": "10%"}},
		},
		"template": map[string]any{
			"spec": map[string]any{
				"nodeClassRef": map[string]any{"group": "karpenter.k8s.aws", "kind": "EC2NodeClass", "name": "default"},
				"requirements": []any{
					map[string]any{"key": "karpenter.sh/capacity-type", "operator": "In", "values": []any{"spot", "on-demand"}},
					map[string]any{"key": "kubernetes.io/arch", "operator": "Exists"},
				},
				"taints": []any{
					map[string]any{"key": "dedicated", "value": "batch", "effect": "NoSchedule"},
				},
			},
		},
	}, map[string]any{
		"nodes":     int64(3),
		"resources": map[string]any{"cpu": "12", "memory": "48Gi", "pods": "330"},
		"conditions": []any{
			map[string]any{"type": "Ready", "status": "True", "reason": "Ready"},
			map[string]any{"type": "NodeClassReady", "status": "True"},
		},
	})
}

func newNodePoolService(t *testing.T, opts ...testsupport.ClusterOption) *nodepools.Service {
	t.Helper()
	opts = append(opts, testsupport.WithListKinds(map[schema.GroupVersionResource]string{
		nodepools.NodePoolGVR: "NodePoolList",
	}))
	fc := testsupport.NewCluster(t, opts...)
	return nodepools.NewService(generic.Dependencies{Credentials: fc.Credentials, Logger: fc.Logger})
}

func TestNodePoolsUnavailableWithoutKarpenter(t *testing.T) {
	service := newNodePoolService(t, testsupport.WithDynamicObjects(generalPurpose()))

	_, err := service.NodePools.List(context.Background(), "")
	require.True(t, apperrors.IsUnavailableFeature(err))
	require.ErrorContains(t, err, "Karpenter")
}

func TestNodePoolProjection(t *testing.T) {
	bare := nodePool("bare", map[string]any{"template": map[string]any{"spec": map[string]any{}}}, nil)
	service := newNodePoolService(t,
		testsupport.WithCRDs(testsupport.CRDFixture("nodepools.karpenter.sh", "NodePool", testsupport.CRDClusterScoped())),
		testsupport.WithDynamicObjects(generalPurpose(), bare),
	)

	rows, err := service.NodePools.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, restypes.NodePoolInfo{Kind: "NodePool", Name: "bare", NodeClass: "-", Ready: "Unknown", Age: "-"}, rows[0])
	require.Equal(t, "EC2NodeClass/default", rows[1].NodeClass)
	require.Equal(t, int64(3), rows[1].Nodes)
	require.Equal(t, int64(10), rows[1].Weight)
	require.Equal(t, "True", rows[1].Ready)

	detail, err := service.NodePools.Get(context.Background(), "", "general")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"cpu": "1000.00", "memory": "1000.00Gi"}, detail.Limits)
	require.Equal(t, map[string]string{"cpu": "12.00", "memory": "48.00Gi", "pods": "330"}, detail.Resources)
	require.Equal(t, []string{
		"karpenter.sh/capacity-type In spot,on-demand",
		"kubernetes.io/arch Exists",
	}, detail.Requirements)
	require.Equal(t, []string{"dedicated=batch:NoSchedule"}, detail.Taints)
	require.Equal(t, "1 budget(s)", detail.Disruption["budgets"])
	require.Equal(t, "WhenEmptyOrUnderutilized", detail.Disruption["consolidationPolicy"])
	require.Len(t, detail.Conditions, 2)
	require.Equal(t, "NodeClassReady", detail.Conditions[0].Type)
}
