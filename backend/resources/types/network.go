package types

// GatewayDetails is the single-object view of a gateway.networking.k8s.io Gateway.
type GatewayDetails struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Age         string            `json:"age"`
	Details     string            `json:"details"`
	ClassName   string            `json:"className"`
	Listeners   []GatewayListener `json:"listeners"`
	Addresses   []string          `json:"addresses,omitempty"`
	Conditions  []Condition       `json:"conditions,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// GatewayListener describes one listener and how many routes attached to it.
type GatewayListener struct {
	Name           string `json:"name"`
	Protocol       string `json:"protocol"`
	Port           int32  `json:"port"`
	Hostname       string `json:"hostname,omitempty"`
	AttachedRoutes int32  `json:"attachedRoutes"`
}

// HTTPRouteDetails is the single-object view of an HTTPRoute.
type HTTPRouteDetails struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Age         string            `json:"age"`
	Details     string            `json:"details"`
	Hostnames   []string          `json:"hostnames,omitempty"`
	Parents     []string          `json:"parents"`
	Rules       []HTTPRouteRule   `json:"rules"`
	Conditions  []Condition       `json:"conditions,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// HTTPRouteRule summarises matches and backends of a route rule.
type HTTPRouteRule struct {
	Matches  []string `json:"matches,omitempty"`
	Backends []string `json:"backends,omitempty"`
}

// Condition is a generic status condition.
type Condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}
