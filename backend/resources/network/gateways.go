package network

import (
	"fmt"

	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func GatewayKind() generic.Kind[restypes.NsNetworkInfo, *restypes.GatewayDetails] {
	return generic.Kind[restypes.NsNetworkInfo, *restypes.GatewayDetails]{
		Name:       "Gateway",
		Aliases:    []string{"gtw"},
		GVR:        GatewayGVR,
		Namespaced: true,
		CRD:        crdName(GatewayGVR),
		Feature:    gatewayFeature,
		Watchable:  true,
		ListItem: generic.Project(func(gw *gatewayv1.Gateway) restypes.NsNetworkInfo {
			return restypes.NsNetworkInfo{
				Kind:      "Gateway",
				Name:      gw.Name,
				Namespace: gw.Namespace,
				Details:   gatewaySummary(gw),
				Status:    conditionStatus(gw.Status.Conditions, string(gatewayv1.GatewayConditionProgrammed)),
				Age:       common.FormatAge(gw.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(gatewayDetails),
	}
}

func gatewayDetails(gw *gatewayv1.Gateway) *restypes.GatewayDetails {
	details := &restypes.GatewayDetails{
		Kind:        "Gateway",
		Name:        gw.Name,
		Namespace:   gw.Namespace,
		Age:         common.FormatAge(gw.CreationTimestamp.Time),
		Details:     gatewaySummary(gw),
		ClassName:   string(gw.Spec.GatewayClassName),
		Listeners:   make([]restypes.GatewayListener, 0, len(gw.Spec.Listeners)),
		Conditions:  conditions(gw.Status.Conditions),
		Labels:      gw.Labels,
		Annotations: gw.Annotations,
	}

	attached := make(map[gatewayv1.SectionName]int32, len(gw.Status.Listeners))
	for _, status := range gw.Status.Listeners {
		attached[status.Name] = status.AttachedRoutes
	}
	for _, listener := range gw.Spec.Listeners {
		out := restypes.GatewayListener{
			Name:           string(listener.Name),
			Protocol:       string(listener.Protocol),
			Port:           int32(listener.Port),
			AttachedRoutes: attached[listener.Name],
		}
		if listener.Hostname != nil {
			out.Hostname = string(*listener.Hostname)
		}
		details.Listeners = append(details.Listeners, out)
	}
	for _, address := range gw.Status.Addresses {
		details.Addresses = append(details.Addresses, address.Value)
	}
	return details
}

func gatewaySummary(gw *gatewayv1.Gateway) string {
	return fmt.Sprintf("Class: %s, Listeners: %d", gw.Spec.GatewayClassName, len(gw.Spec.Listeners))
}
