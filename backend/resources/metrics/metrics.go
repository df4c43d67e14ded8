/*
 * backend/resources/metrics/metrics.go
 *
 * metrics.k8s.io PodMetrics.
 * - Samples are read-only and the API does not support watch.
 * - NamespaceUsage totals samples through the typed metrics client.
 */

package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var PodMetricsGVR = metricsv1beta1.SchemeGroupVersion.WithResource("pods")

type Service struct {
	PodMetrics *generic.Service[restypes.PodMetricsInfo, *restypes.PodMetricsDetails]

	deps generic.Dependencies
}

func NewService(deps generic.Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = common.NoopLogger{}
	}
	return &Service{
		PodMetrics: generic.NewService(deps, PodMetricsKind()),
		deps:       deps,
	}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.PodMetrics.Accessor()}
}

func PodMetricsKind() generic.Kind[restypes.PodMetricsInfo, *restypes.PodMetricsDetails] {
	return generic.Kind[restypes.PodMetricsInfo, *restypes.PodMetricsDetails]{
		Name:       "PodMetrics",
		GVR:        PodMetricsGVR,
		Namespaced: true,
		Watchable:  false,
		ListItem:   generic.Project(podMetricsRow),
		Detail: generic.Project(func(m *metricsv1beta1.PodMetrics) *restypes.PodMetricsDetails {
			details := &restypes.PodMetricsDetails{
				PodMetricsInfo: podMetricsRow(m),
				ContainerUsage: make([]restypes.ContainerUsage, 0, len(m.Containers)),
			}
			for _, c := range m.Containers {
				details.ContainerUsage = append(details.ContainerUsage, restypes.ContainerUsage{
					Name:     c.Name,
					CPUUsage: common.FormatCPU(c.Usage.Cpu()),
					MemUsage: common.FormatMemory(c.Usage.Memory()),
				})
			}
			return details
		}),
	}
}

func podMetricsRow(m *metricsv1beta1.PodMetrics) restypes.PodMetricsInfo {
	cpu, mem := totalUsage(m)
	return restypes.PodMetricsInfo{
		Kind:       "PodMetrics",
		Name:       m.Name,
		Namespace:  m.Namespace,
		CPUUsage:   common.FormatCPU(&cpu),
		MemUsage:   common.FormatMemory(&mem),
		Containers: len(m.Containers),
		Window:     duration.HumanDuration(m.Window.Duration),
		Age:        common.FormatAge(m.Timestamp.Time),
	}
}

func totalUsage(m *metricsv1beta1.PodMetrics) (resource.Quantity, resource.Quantity) {
	cpu := resource.Quantity{}
	mem := resource.Quantity{}
	for _, c := range m.Containers {
		if q, ok := c.Usage[corev1.ResourceCPU]; ok {
			cpu.Add(q)
		}
		if q, ok := c.Usage[corev1.ResourceMemory]; ok {
			mem.Add(q)
		}
	}
	return cpu, mem
}

// NamespaceUsage totals the latest samples per namespace. An empty namespace
// covers the whole cluster. Results are sorted by namespace.
func (s *Service) NamespaceUsage(ctx context.Context, namespace string) ([]restypes.NamespaceUsage, error) {
	started := time.Now()
	list, err := cluster.Do(ctx, s.deps.Credentials, "list pod metrics", func(ctx context.Context, clients *cluster.Clients) (*metricsv1beta1.PodMetricsList, error) {
		if clients.Metrics == nil {
			return nil, fmt.Errorf("metrics client not initialized")
		}
		return clients.Metrics.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	})
	if err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("Failed to list pod metrics in namespace %q: %v", namespace, err), "ResourceLoader")
		return nil, apperrors.FromAPI("PodMetrics", namespace, "", err)
	}

	type totals struct {
		pods     int
		cpu, mem resource.Quantity
	}
	byNamespace := make(map[string]*totals)
	for i := range list.Items {
		m := &list.Items[i]
		t, ok := byNamespace[m.Namespace]
		if !ok {
			t = &totals{}
			byNamespace[m.Namespace] = t
		}
		cpu, mem := totalUsage(m)
		t.pods++
		t.cpu.Add(cpu)
		t.mem.Add(mem)
	}

	out := make([]restypes.NamespaceUsage, 0, len(byNamespace))
	for ns, t := range byNamespace {
		out = append(out, restypes.NamespaceUsage{
			Namespace: ns,
			Pods:      t.pods,
			CPUUsage:  common.FormatCPU(&t.cpu),
			MemUsage:  common.FormatMemory(&t.mem),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })

	s.deps.Logger.Debug(fmt.Sprintf("Summarised %d pod metrics in %s", len(list.Items), time.Since(started)), "ResourceLoader")
	return out, nil
}
