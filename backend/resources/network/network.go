/*
 * backend/resources/network/network.go
 *
 * Gateway API resources.
 * - Gateways and HTTPRoutes are CRD-backed and gated on their CRDs.
 */

package network

import (
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

const gatewayFeature = "Gateway API"

var (
	GatewayGVR   = gatewayv1.SchemeGroupVersion.WithResource("gateways")
	HTTPRouteGVR = gatewayv1.SchemeGroupVersion.WithResource("httproutes")
)

// CRD names follow <plural>.<group>.
func crdName(gvr schema.GroupVersionResource) string {
	return gvr.Resource + "." + gvr.Group
}

type Service struct {
	Gateways   *generic.Service[restypes.NsNetworkInfo, *restypes.GatewayDetails]
	HTTPRoutes *generic.Service[restypes.NsNetworkInfo, *restypes.HTTPRouteDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{
		Gateways:   generic.NewService(deps, GatewayKind()),
		HTTPRoutes: generic.NewService(deps, HTTPRouteKind()),
	}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.Gateways.Accessor(), s.HTTPRoutes.Accessor()}
}

func conditions(in []metav1.Condition) []restypes.Condition {
	if len(in) == 0 {
		return nil
	}
	out := make([]restypes.Condition, 0, len(in))
	for _, c := range in {
		out = append(out, restypes.Condition{
			Type:    c.Type,
			Status:  string(c.Status),
			Reason:  c.Reason,
			Message: c.Message,
		})
	}
	return out
}

// conditionStatus renders the named condition as "Programmed", "Not Programmed"
// or "Unknown".
func conditionStatus(in []metav1.Condition, conditionType string) string {
	for _, c := range in {
		if c.Type != conditionType {
			continue
		}
		switch c.Status {
		case metav1.ConditionTrue:
			return conditionType
		case metav1.ConditionFalse:
			return "Not " + conditionType
		}
	}
	return "Unknown"
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func parentName(ref gatewayv1.ParentReference, routeNamespace string) string {
	namespace := routeNamespace
	if ref.Namespace != nil {
		namespace = string(*ref.Namespace)
	}
	name := fmt.Sprintf("%s/%s", namespace, ref.Name)
	if ref.SectionName != nil {
		name += "#" + string(*ref.SectionName)
	}
	return name
}
