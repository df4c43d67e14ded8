/*
 * backend/resources/rbac/roles.go
 *
 * Role projections.
 */

package rbac

import (
	"fmt"

	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func RoleKind() generic.Kind[restypes.NsRBACInfo, *restypes.RoleDetails] {
	return generic.Kind[restypes.NsRBACInfo, *restypes.RoleDetails]{
		Name:       "Role",
		GVR:        RoleGVR,
		Namespaced: true,
		Watchable:  true,
		ListItem: generic.Project(func(role *rbacv1.Role) restypes.NsRBACInfo {
			return restypes.NsRBACInfo{
				Kind:      "Role",
				Name:      role.Name,
				Namespace: role.Namespace,
				Details:   rulesSummary(role.Rules),
				Age:       common.FormatAge(role.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(roleDetails),
	}
}

func roleDetails(role *rbacv1.Role) *restypes.RoleDetails {
	return &restypes.RoleDetails{
		Kind:        "Role",
		Name:        role.Name,
		Namespace:   role.Namespace,
		Age:         common.FormatAge(role.CreationTimestamp.Time),
		Details:     rulesSummary(role.Rules),
		Rules:       policyRules(role.Rules),
		Labels:      role.Labels,
		Annotations: role.Annotations,
	}
}

func rulesSummary(rules []rbacv1.PolicyRule) string {
	resourceCount := 0
	verbCount := 0
	for _, rule := range rules {
		resourceCount += len(rule.Resources)
		verbCount += len(rule.Verbs)
	}

	summary := fmt.Sprintf("Rules: %d", len(rules))
	if resourceCount > 0 || verbCount > 0 {
		summary += fmt.Sprintf(" (%d resources, %d verbs)", resourceCount, verbCount)
	}
	return summary
}
