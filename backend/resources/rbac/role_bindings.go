/*
 * backend/resources/rbac/role_bindings.go
 *
 * RoleBinding projections.
 */

package rbac

import (
	"fmt"
	"sort"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func RoleBindingKind() generic.Kind[restypes.NsRBACInfo, *restypes.RoleBindingDetails] {
	return generic.Kind[restypes.NsRBACInfo, *restypes.RoleBindingDetails]{
		Name:       "RoleBinding",
		GVR:        RoleBindingGVR,
		Namespaced: true,
		Watchable:  true,
		ListItem: generic.Project(func(rb *rbacv1.RoleBinding) restypes.NsRBACInfo {
			return restypes.NsRBACInfo{
				Kind:      "RoleBinding",
				Name:      rb.Name,
				Namespace: rb.Namespace,
				Details:   bindingSummary(rb),
				Age:       common.FormatAge(rb.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(roleBindingDetails),
	}
}

func roleBindingDetails(rb *rbacv1.RoleBinding) *restypes.RoleBindingDetails {
	details := &restypes.RoleBindingDetails{
		Kind:        "RoleBinding",
		Name:        rb.Name,
		Namespace:   rb.Namespace,
		Age:         common.FormatAge(rb.CreationTimestamp.Time),
		Details:     bindingSummary(rb),
		Labels:      rb.Labels,
		Annotations: rb.Annotations,
		RoleRef: restypes.RoleRef{
			APIGroup: rb.RoleRef.APIGroup,
			Kind:     rb.RoleRef.Kind,
			Name:     rb.RoleRef.Name,
		},
		Subjects: make([]restypes.Subject, 0, len(rb.Subjects)),
	}
	for _, subject := range rb.Subjects {
		details.Subjects = append(details.Subjects, restypes.Subject{
			Kind:      subject.Kind,
			APIGroup:  subject.APIGroup,
			Name:      subject.Name,
			Namespace: subject.Namespace,
		})
	}
	return details
}

// bindingSummary renders e.g. "Subjects: 3 (1 Group, 2 ServiceAccount), Role: reader".
func bindingSummary(rb *rbacv1.RoleBinding) string {
	counts := make(map[string]int)
	for _, subject := range rb.Subjects {
		counts[subject.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	summary := fmt.Sprintf("Subjects: %d", len(rb.Subjects))
	if len(kinds) > 0 {
		parts := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%d %s", counts[kind], kind))
		}
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	if rb.RoleRef.Name != "" {
		summary += fmt.Sprintf(", %s: %s", rb.RoleRef.Kind, rb.RoleRef.Name)
	}
	return summary
}
