package rbac

import (
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var (
	RoleGVR        = schema.GroupVersionResource{Group: rbacv1.GroupName, Version: "v1", Resource: "roles"}
	RoleBindingGVR = schema.GroupVersionResource{Group: rbacv1.GroupName, Version: "v1", Resource: "rolebindings"}
	ClusterRoleGVR = schema.GroupVersionResource{Group: rbacv1.GroupName, Version: "v1", Resource: "clusterroles"}
)

type Service struct {
	Roles        *generic.Service[restypes.NsRBACInfo, *restypes.RoleDetails]
	RoleBindings *generic.Service[restypes.NsRBACInfo, *restypes.RoleBindingDetails]
	ClusterRoles *generic.Service[restypes.ClsRBACInfo, *restypes.ClusterRoleDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{
		Roles:        generic.NewService(deps, RoleKind()),
		RoleBindings: generic.NewService(deps, RoleBindingKind()),
		ClusterRoles: generic.NewService(deps, ClusterRoleKind()),
	}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.Roles.Accessor(), s.RoleBindings.Accessor(), s.ClusterRoles.Accessor()}
}

func policyRules(rules []rbacv1.PolicyRule) []restypes.PolicyRule {
	out := make([]restypes.PolicyRule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, restypes.PolicyRule{
			APIGroups:       rule.APIGroups,
			Resources:       rule.Resources,
			ResourceNames:   rule.ResourceNames,
			Verbs:           rule.Verbs,
			NonResourceURLs: rule.NonResourceURLs,
		})
	}
	return out
}
