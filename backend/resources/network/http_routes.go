package network

import (
	"fmt"
	"strings"

	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func HTTPRouteKind() generic.Kind[restypes.NsNetworkInfo, *restypes.HTTPRouteDetails] {
	return generic.Kind[restypes.NsNetworkInfo, *restypes.HTTPRouteDetails]{
		Name:       "HTTPRoute",
		GVR:        HTTPRouteGVR,
		Namespaced: true,
		CRD:        crdName(HTTPRouteGVR),
		Feature:    gatewayFeature,
		Watchable:  true,
		ListItem: generic.Project(func(route *gatewayv1.HTTPRoute) restypes.NsNetworkInfo {
			return restypes.NsNetworkInfo{
				Kind:      "HTTPRoute",
				Name:      route.Name,
				Namespace: route.Namespace,
				Details:   routeSummary(route),
				Status:    routeStatus(route),
				Age:       common.FormatAge(route.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(httpRouteDetails),
	}
}

func httpRouteDetails(route *gatewayv1.HTTPRoute) *restypes.HTTPRouteDetails {
	details := &restypes.HTTPRouteDetails{
		Kind:        "HTTPRoute",
		Name:        route.Name,
		Namespace:   route.Namespace,
		Age:         common.FormatAge(route.CreationTimestamp.Time),
		Details:     routeSummary(route),
		Hostnames:   hostnames(route),
		Parents:     parents(route),
		Rules:       make([]restypes.HTTPRouteRule, 0, len(route.Spec.Rules)),
		Labels:      route.Labels,
		Annotations: route.Annotations,
	}

	for _, rule := range route.Spec.Rules {
		out := restypes.HTTPRouteRule{}
		for _, match := range rule.Matches {
			out.Matches = append(out.Matches, describeMatch(match))
		}
		for _, backend := range rule.BackendRefs {
			out.Backends = append(out.Backends, describeBackend(backend, route.Namespace))
		}
		details.Rules = append(details.Rules, out)
	}
	for _, parent := range route.Status.Parents {
		details.Conditions = append(details.Conditions, conditions(parent.Conditions)...)
	}
	return details
}

func hostnames(route *gatewayv1.HTTPRoute) []string {
	out := make([]string, 0, len(route.Spec.Hostnames))
	for _, h := range route.Spec.Hostnames {
		out = append(out, string(h))
	}
	return out
}

func parents(route *gatewayv1.HTTPRoute) []string {
	out := make([]string, 0, len(route.Spec.ParentRefs))
	for _, ref := range route.Spec.ParentRefs {
		out = append(out, parentName(ref, route.Namespace))
	}
	return out
}

func routeSummary(route *gatewayv1.HTTPRoute) string {
	return fmt.Sprintf("Parents: %s, Hosts: %s", joinOrDash(parents(route)), joinOrDash(hostnames(route)))
}

// routeStatus reports Accepted only when every parent accepted the route.
func routeStatus(route *gatewayv1.HTTPRoute) string {
	if len(route.Status.Parents) == 0 {
		return "Unknown"
	}
	accepted := string(gatewayv1.RouteConditionAccepted)
	for _, parent := range route.Status.Parents {
		if status := conditionStatus(parent.Conditions, accepted); status != accepted {
			return status
		}
	}
	return accepted
}

func describeMatch(match gatewayv1.HTTPRouteMatch) string {
	var parts []string
	if match.Method != nil {
		parts = append(parts, string(*match.Method))
	}
	if match.Path != nil && match.Path.Value != nil {
		pathType := string(gatewayv1.PathMatchPathPrefix)
		if match.Path.Type != nil {
			pathType = string(*match.Path.Type)
		}
		parts = append(parts, fmt.Sprintf("%s %s", pathType, *match.Path.Value))
	}
	for _, header := range match.Headers {
		parts = append(parts, fmt.Sprintf("header %s=%s", header.Name, header.Value))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func describeBackend(ref gatewayv1.HTTPBackendRef, routeNamespace string) string {
	namespace := routeNamespace
	if ref.Namespace != nil {
		namespace = string(*ref.Namespace)
	}
	out := fmt.Sprintf("%s/%s", namespace, ref.Name)
	if ref.Port != nil {
		out += fmt.Sprintf(":%d", *ref.Port)
	}
	if ref.Weight != nil {
		out += fmt.Sprintf(" (weight %d)", *ref.Weight)
	}
	return out
}
