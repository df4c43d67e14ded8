package types

// NodePoolInfo is the list row for a Karpenter NodePool.
type NodePoolInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	NodeClass string `json:"nodeClass"`
	Nodes     int64  `json:"nodes"`
	Weight    int64  `json:"weight"`
	Ready     string `json:"ready"`
	Age       string `json:"age"`
}

// NodePoolDetails is the single-object view of a Karpenter NodePool.
type NodePoolDetails struct {
	NodePoolInfo
	Limits       map[string]string `json:"limits,omitempty"`
	Resources    map[string]string `json:"resources,omitempty"`
	Requirements []string          `json:"requirements,omitempty"`
	Taints       []string          `json:"taints,omitempty"`
	Disruption   map[string]string `json:"disruption,omitempty"`
	Conditions   []Condition       `json:"conditions,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
}
