package types

// PodMetricsInfo is the list row for metrics.k8s.io PodMetrics.
type PodMetricsInfo struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	CPUUsage   string `json:"cpuUsage"`
	MemUsage   string `json:"memUsage"`
	Containers int    `json:"containers"`
	Window     string `json:"window"`
	Age        string `json:"age"` // since the sample was taken
}

// PodMetricsDetails breaks usage down per container.
type PodMetricsDetails struct {
	PodMetricsInfo
	ContainerUsage []ContainerUsage `json:"containerUsage"`
}

// ContainerUsage is one container's sampled usage.
type ContainerUsage struct {
	Name     string `json:"name"`
	CPUUsage string `json:"cpuUsage"`
	MemUsage string `json:"memUsage"`
}

// NamespaceUsage totals the sampled usage of a namespace.
type NamespaceUsage struct {
	Namespace string `json:"namespace"`
	Pods      int    `json:"pods"`
	CPUUsage  string `json:"cpuUsage"`
	MemUsage  string `json:"memUsage"`
}
