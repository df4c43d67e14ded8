package network_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/utils/ptr"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	"github.com/luxury-yacht/dashboard/backend/resources/network"
	"github.com/luxury-yacht/dashboard/backend/testsupport"
)

var gatewayTypeMeta = metav1.TypeMeta{APIVersion: "gateway.networking.k8s.io/v1", Kind: "Gateway"}

func newNetworkService(t *testing.T, opts ...testsupport.ClusterOption) *network.Service {
	t.Helper()
	opts = append(opts, testsupport.WithListKinds(map[schema.GroupVersionResource]string{
		network.GatewayGVR:   "GatewayList",
		network.HTTPRouteGVR: "HTTPRouteList",
	}))
	fc := testsupport.NewCluster(t, opts...)
	return network.NewService(generic.Dependencies{Credentials: fc.Credentials, Logger: fc.Logger})
}

func withGatewayCRDs() testsupport.ClusterOption {
	return testsupport.WithCRDs(
		testsupport.CRDFixture("gateways.gateway.networking.k8s.io", "Gateway"),
		testsupport.CRDFixture("httproutes.gateway.networking.k8s.io", "HTTPRoute"),
	)
}

func edgeGateway() *gatewayv1.Gateway {
	return &gatewayv1.Gateway{
		TypeMeta:   gatewayTypeMeta,
		ObjectMeta: metav1.ObjectMeta{Name: "edge", Namespace: "infra"},
		Spec: gatewayv1.GatewaySpec{
			GatewayClassName: "envoy",
			Listeners: []gatewayv1.Listener{
				{Name: "http", Protocol: gatewayv1.HTTPProtocolType, Port: 80},
				{Name: "https", Protocol: gatewayv1.HTTPSProtocolType, Port: 443, Hostname: ptr.To(gatewayv1.Hostname("*.example.com"))},
			},
		},
		Status: gatewayv1.GatewayStatus{
			Addresses: []gatewayv1.GatewayStatusAddress{{Value: "10.0.0.7"}},
			Conditions: []metav1.Condition{{
				Type:   string(gatewayv1.GatewayConditionProgrammed),
				Status: metav1.ConditionTrue,
				Reason: "Programmed",
			}},
			Listeners: []gatewayv1.ListenerStatus{{Name: "https", AttachedRoutes: 2}},
		},
	}
}

func TestGatewayKindsRequireCRDs(t *testing.T) {
	service := newNetworkService(t, testsupport.WithDynamicObjects(edgeGateway()))

	_, err := service.Gateways.List(context.Background(), "infra")
	require.True(t, apperrors.IsUnavailableFeature(err))
	require.ErrorContains(t, err, "Gateway API is not available")

	_, err = service.HTTPRoutes.Get(context.Background(), "infra", "web")
	require.True(t, apperrors.IsUnavailableFeature(err))
}

func TestGatewayProjection(t *testing.T) {
	service := newNetworkService(t, withGatewayCRDs(), testsupport.WithDynamicObjects(edgeGateway()))

	rows, err := service.Gateways.List(context.Background(), "infra")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Programmed", rows[0].Status)
	require.Equal(t, "Class: envoy, Listeners: 2", rows[0].Details)

	detail, err := service.Gateways.Get(context.Background(), "infra", "edge")
	require.NoError(t, err)
	require.Equal(t, "envoy", detail.ClassName)
	require.Equal(t, []string{"10.0.0.7"}, detail.Addresses)
	require.Len(t, detail.Listeners, 2)
	require.Equal(t, int32(0), detail.Listeners[0].AttachedRoutes)
	require.Equal(t, int32(2), detail.Listeners[1].AttachedRoutes)
	require.Equal(t, "*.example.com", detail.Listeners[1].Hostname)
}

func TestHTTPRouteProjection(t *testing.T) {
	route := &gatewayv1.HTTPRoute{
		TypeMeta:   metav1.TypeMeta{APIVersion: "gateway.networking.k8s.io/v1", Kind: "HTTPRoute"},
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "shop"},
		Spec: gatewayv1.HTTPRouteSpec{
			CommonRouteSpec: gatewayv1.CommonRouteSpec{
				ParentRefs: []gatewayv1.ParentReference{{
					Name:        "edge",
					Namespace:   ptr.To(gatewayv1.Namespace("infra")),
					SectionName: ptr.To(gatewayv1.SectionName("https")),
				}},
			},
			Hostnames: []gatewayv1.Hostname{"shop.example.com"},
			Rules: []gatewayv1.HTTPRouteRule{{
				Matches: []gatewayv1.HTTPRouteMatch{{
					Path: &gatewayv1.HTTPPathMatch{
						Type:  ptr.To(gatewayv1.PathMatchExact),
						Value: ptr.To("/cart"),
					},
					Method: ptr.To(gatewayv1.HTTPMethodPost),
				}, {}},
				BackendRefs: []gatewayv1.HTTPBackendRef{{
					BackendRef: gatewayv1.BackendRef{
						BackendObjectReference: gatewayv1.BackendObjectReference{
							Name: "cart",
							Port: ptr.To(gatewayv1.PortNumber(8080)),
						},
						Weight: ptr.To[int32](90),
					},
				}},
			}},
		},
		Status: gatewayv1.HTTPRouteStatus{
			RouteStatus: gatewayv1.RouteStatus{
				Parents: []gatewayv1.RouteParentStatus{{
					ParentRef:      gatewayv1.ParentReference{Name: "edge"},
					ControllerName: "example.com/gateway-controller",
					Conditions: []metav1.Condition{{
						Type:   string(gatewayv1.RouteConditionAccepted),
						Status: metav1.ConditionFalse,
						Reason: "NotAllowedByListeners",
					}},
				}},
			},
		},
	}
	service := newNetworkService(t, withGatewayCRDs(), testsupport.WithDynamicObjects(route))

	rows, err := service.HTTPRoutes.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Not Accepted", rows[0].Status)
	require.Equal(t, "Parents: infra/edge#https, Hosts: shop.example.com", rows[0].Details)

	detail, err := service.HTTPRoutes.Get(context.Background(), "shop", "web")
	require.NoError(t, err)
	require.Equal(t, []string{"POST Exact /cart", "*"}, detail.Rules[0].Matches)
	require.Equal(t, []string{"shop/cart:8080 (weight 90)"}, detail.Rules[0].Backends)
	require.Len(t, detail.Conditions, 1)
	require.Equal(t, "NotAllowedByListeners", detail.Conditions[0].Reason)
}
