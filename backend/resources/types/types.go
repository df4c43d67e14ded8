package types

// List rows. Every kind projects into one of these for list views and stream
// envelopes; the detail types below back single-object views.

// NsConfigInfo represents basic config information (ConfigMaps and Secrets)
type NsConfigInfo struct {
	Kind      string `json:"kind"`      // ConfigMap, Secret
	TypeAlias string `json:"typeAlias"` // Short display name
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Data      int    `json:"data"` // number of data items
	Age       string `json:"age"`
}

// NsRBACInfo represents namespaced RBAC resources (Roles, RoleBindings)
type NsRBACInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Details   string `json:"details"`
	Age       string `json:"age"`
}

// ClsRBACInfo represents cluster-wide RBAC resources (ClusterRoles)
type ClsRBACInfo struct {
	Kind      string `json:"kind"`
	TypeAlias string `json:"typeAlias"`
	Name      string `json:"name"`
	Details   string `json:"details"`
	Age       string `json:"age"`
}

// NsStorageInfo represents a PersistentVolumeClaim row
type NsStorageInfo struct {
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	Namespace    string `json:"namespace"`
	Capacity     string `json:"capacity"`
	Status       string `json:"status"`
	StorageClass string `json:"storageClass"`
	Age          string `json:"age"`
}

// ClsStorageClassInfo represents Kubernetes StorageClass information
type ClsStorageClassInfo struct {
	Kind              string `json:"kind"`
	Name              string `json:"name"`
	Provisioner       string `json:"provisioner"`
	ReclaimPolicy     string `json:"reclaimPolicy"`
	VolumeBindingMode string `json:"volumeBindingMode"`
	AllowExpansion    bool   `json:"allowExpansion"`
	IsDefault         bool   `json:"isDefault"`
	Age               string `json:"age"`
}

// NsNetworkInfo represents Gateway API resources
type NsNetworkInfo struct {
	Kind      string `json:"kind"` // Gateway, HTTPRoute
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Details   string `json:"details"` // class/listeners or parents/hostnames
	Status    string `json:"status"`
	Age       string `json:"age"`
}

// NsAutoscalingInfo represents basic autoscaling resource information
type NsAutoscalingInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Target    string `json:"target"` // e.g. Deployment/nginx
	Min       int32  `json:"min"`
	Max       int32  `json:"max"`
	Current   int32  `json:"current"`
	Age       string `json:"age"`
}

// ClsCRDInfo represents Custom Resource Definition information
type ClsCRDInfo struct {
	Kind      string `json:"kind"`
	TypeAlias string `json:"typeAlias"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Scope     string `json:"scope"`
	Details   string `json:"details"`
	Age       string `json:"age"`
}

// ConfigMapDetails is the single-object view of a ConfigMap.
type ConfigMapDetails struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Age         string            `json:"age"`
	Details     string            `json:"details"`
	Data        map[string]string `json:"data,omitempty"`
	BinaryData  map[string]string `json:"binaryData,omitempty"`
	DataCount   int               `json:"dataCount"`
	Immutable   bool              `json:"immutable,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// SecretDetails is the single-object view of a Secret. Values are decoded.
type SecretDetails struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Age         string            `json:"age"`
	Details     string            `json:"details"`
	SecretType  string            `json:"secretType"`
	Data        map[string]string `json:"data,omitempty"`
	DataKeys    []string          `json:"dataKeys"`
	DataCount   int               `json:"dataCount"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type RoleDetails struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Age         string            `json:"age"`
	Details     string            `json:"details"`
	Rules       []PolicyRule      `json:"rules"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type PolicyRule struct {
	APIGroups       []string `json:"apiGroups,omitempty"`
	Resources       []string `json:"resources,omitempty"`
	ResourceNames   []string `json:"resourceNames,omitempty"`
	Verbs           []string `json:"verbs"`
	NonResourceURLs []string `json:"nonResourceURLs,omitempty"`
}

type RoleBindingDetails struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Age         string            `json:"age"`
	Details     string            `json:"details"`
	RoleRef     RoleRef           `json:"roleRef"`
	Subjects    []Subject         `json:"subjects"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type RoleRef struct {
	APIGroup string `json:"apiGroup"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
}

type Subject struct {
	Kind      string `json:"kind"`
	APIGroup  string `json:"apiGroup,omitempty"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

type ClusterRoleDetails struct {
	Kind            string            `json:"kind"`
	Name            string            `json:"name"`
	Age             string            `json:"age"`
	Details         string            `json:"details"`
	Rules           []PolicyRule      `json:"rules"`
	AggregationRule *AggregationRule  `json:"aggregationRule,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
	Annotations     map[string]string `json:"annotations,omitempty"`
}

type AggregationRule struct {
	ClusterRoleSelectors []map[string]string `json:"clusterRoleSelectors,omitempty"`
}
