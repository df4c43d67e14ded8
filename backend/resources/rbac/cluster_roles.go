/*
 * backend/resources/rbac/cluster_roles.go
 *
 * ClusterRole projections.
 * - Aggregated roles report their selectors.
 */

package rbac

import (
	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func ClusterRoleKind() generic.Kind[restypes.ClsRBACInfo, *restypes.ClusterRoleDetails] {
	return generic.Kind[restypes.ClsRBACInfo, *restypes.ClusterRoleDetails]{
		Name:      "ClusterRole",
		GVR:       ClusterRoleGVR,
		Watchable: true,
		ListItem: generic.Project(func(cr *rbacv1.ClusterRole) restypes.ClsRBACInfo {
			return restypes.ClsRBACInfo{
				Kind:      "ClusterRole",
				TypeAlias: "CR",
				Name:      cr.Name,
				Details:   clusterRoleSummary(cr),
				Age:       common.FormatAge(cr.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(clusterRoleDetails),
	}
}

func clusterRoleDetails(cr *rbacv1.ClusterRole) *restypes.ClusterRoleDetails {
	details := &restypes.ClusterRoleDetails{
		Kind:        "ClusterRole",
		Name:        cr.Name,
		Age:         common.FormatAge(cr.CreationTimestamp.Time),
		Details:     clusterRoleSummary(cr),
		Rules:       policyRules(cr.Rules),
		Labels:      cr.Labels,
		Annotations: cr.Annotations,
	}

	if cr.AggregationRule != nil {
		agg := &restypes.AggregationRule{}
		for _, selector := range cr.AggregationRule.ClusterRoleSelectors {
			agg.ClusterRoleSelectors = append(agg.ClusterRoleSelectors, selector.MatchLabels)
		}
		details.AggregationRule = agg
	}
	return details
}

func clusterRoleSummary(cr *rbacv1.ClusterRole) string {
	summary := rulesSummary(cr.Rules)
	if cr.AggregationRule != nil {
		summary += " (aggregated)"
	}
	return summary
}
