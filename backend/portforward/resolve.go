/*
 * backend/portforward/resolve.go
 *
 * Target resolution for port-forwards.
 * - Pods are used directly once they are ready.
 * - Workloads resolve to their first ready pod by owner name prefix, like kubectl.
 * - Services resolve through their EndpointSlices.
 */

package portforward

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
)

// ContainerPort describes a port exposed by a container.
type ContainerPort struct {
	Port      int    `json:"port"`
	Name      string `json:"name,omitempty"`
	Protocol  string `json:"protocol,omitempty"`
	Container string `json:"container"`
}

// ResolvePod maps a target to the name of a ready pod.
func ResolvePod(ctx context.Context, client kubernetes.Interface, namespace, kind, name string) (string, error) {
	switch kind {
	case "", "Pod":
		pod, err := client.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", apperrors.FromAPI("Pod", namespace, name, err)
		}
		if !isPodReady(pod) {
			return "", apperrors.NewValidation("pod", "pod %s is not ready", name)
		}
		return name, nil
	case "Deployment", "StatefulSet", "DaemonSet":
		pods, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return "", fmt.Errorf("failed to list pods: %w", err)
		}
		for i := range pods.Items {
			pod := &pods.Items[i]
			if strings.HasPrefix(pod.Name, name) && isPodReady(pod) {
				return pod.Name, nil
			}
		}
		return "", &apperrors.NotFoundError{Kind: "ready pod for " + kind, Namespace: namespace, Name: name}
	case "Service":
		return resolveServicePod(ctx, client, namespace, name)
	default:
		return "", apperrors.NewValidation("targetKind", "unsupported target kind %q", kind)
	}
}

func resolveServicePod(ctx context.Context, client kubernetes.Interface, namespace, service string) (string, error) {
	slices, err := client.DiscoveryV1().EndpointSlices(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: discoveryv1.LabelServiceName + "=" + service,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get endpoint slices for service: %w", err)
	}

	for _, slice := range slices.Items {
		for _, endpoint := range slice.Endpoints {
			if endpoint.Conditions.Ready == nil || !*endpoint.Conditions.Ready {
				continue
			}
			if endpoint.TargetRef == nil || endpoint.TargetRef.Kind != "Pod" {
				continue
			}
			pod, err := client.CoreV1().Pods(namespace).Get(ctx, endpoint.TargetRef.Name, metav1.GetOptions{})
			if err != nil {
				continue
			}
			if isPodReady(pod) {
				return pod.Name, nil
			}
		}
	}
	return "", &apperrors.NotFoundError{Kind: "ready pod for Service", Namespace: namespace, Name: service}
}

// ContainerPorts lists the unique container ports declared by a pod.
func ContainerPorts(ctx context.Context, client kubernetes.Interface, namespace, pod string) ([]ContainerPort, error) {
	obj, err := client.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	if err != nil {
		return nil, apperrors.FromAPI("Pod", namespace, pod, err)
	}

	var ports []ContainerPort
	seen := make(map[int32]bool)
	for _, container := range obj.Spec.Containers {
		for _, port := range container.Ports {
			if seen[port.ContainerPort] {
				continue
			}
			seen[port.ContainerPort] = true
			ports = append(ports, ContainerPort{
				Port:      int(port.ContainerPort),
				Name:      port.Name,
				Protocol:  string(port.Protocol),
				Container: container.Name,
			})
		}
	}
	return ports, nil
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
