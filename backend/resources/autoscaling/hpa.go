/*
 * backend/resources/autoscaling/hpa.go
 *
 * HorizontalPodAutoscaler projections.
 * - Metric targets and current values render as display strings.
 */

package autoscaling

import (
	"fmt"
	"strings"

	autoscalingv2 "k8s.io/api/autoscaling/v2"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func HorizontalPodAutoscalerKind() generic.Kind[restypes.NsAutoscalingInfo, *restypes.HorizontalPodAutoscalerDetails] {
	return generic.Kind[restypes.NsAutoscalingInfo, *restypes.HorizontalPodAutoscalerDetails]{
		Name:       "HorizontalPodAutoscaler",
		Aliases:    []string{"hpa"},
		GVR:        HorizontalPodAutoscalerGVR,
		Namespaced: true,
		Watchable:  true,
		ListItem: generic.Project(func(hpa *autoscalingv2.HorizontalPodAutoscaler) restypes.NsAutoscalingInfo {
			return restypes.NsAutoscalingInfo{
				Kind:      "HorizontalPodAutoscaler",
				Name:      hpa.Name,
				Namespace: hpa.Namespace,
				Target:    scaleTarget(hpa),
				Min:       minReplicas(hpa),
				Max:       hpa.Spec.MaxReplicas,
				Current:   hpa.Status.CurrentReplicas,
				Age:       common.FormatAge(hpa.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(horizontalPodAutoscalerDetails),
	}
}

func horizontalPodAutoscalerDetails(hpa *autoscalingv2.HorizontalPodAutoscaler) *restypes.HorizontalPodAutoscalerDetails {
	details := &restypes.HorizontalPodAutoscalerDetails{
		Kind:            "HorizontalPodAutoscaler",
		Name:            hpa.Name,
		Namespace:       hpa.Namespace,
		Age:             common.FormatAge(hpa.CreationTimestamp.Time),
		MinReplicas:     hpa.Spec.MinReplicas,
		MaxReplicas:     hpa.Spec.MaxReplicas,
		CurrentReplicas: hpa.Status.CurrentReplicas,
		DesiredReplicas: hpa.Status.DesiredReplicas,
		LastScaleTime:   hpa.Status.LastScaleTime,
		Metrics:         make([]restypes.MetricSpec, 0, len(hpa.Spec.Metrics)),
		Labels:          hpa.Labels,
		Annotations:     hpa.Annotations,
		ScaleTargetRef: restypes.ScaleTargetReference{
			Kind:       hpa.Spec.ScaleTargetRef.Kind,
			Name:       hpa.Spec.ScaleTargetRef.Name,
			APIVersion: hpa.Spec.ScaleTargetRef.APIVersion,
		},
	}

	for _, metric := range hpa.Spec.Metrics {
		name, target := describeMetricSpec(metric)
		details.Metrics = append(details.Metrics, restypes.MetricSpec{Type: string(metric.Type), Name: name, Target: target})
	}
	for _, metric := range hpa.Status.CurrentMetrics {
		name, current := describeMetricStatus(metric)
		details.CurrentMetrics = append(details.CurrentMetrics, restypes.MetricStatus{Type: string(metric.Type), Name: name, Current: current})
	}

	if hpa.Spec.Behavior != nil {
		details.Behavior = &restypes.ScalingBehavior{
			ScaleUp:   buildScalingRules(hpa.Spec.Behavior.ScaleUp),
			ScaleDown: buildScalingRules(hpa.Spec.Behavior.ScaleDown),
		}
	}

	for _, condition := range hpa.Status.Conditions {
		details.Conditions = append(details.Conditions, restypes.HPACondition{
			Type:    string(condition.Type),
			Status:  string(condition.Status),
			Reason:  condition.Reason,
			Message: condition.Message,
		})
	}

	details.Details = fmt.Sprintf("Target: %s, Replicas: %d/%d/%d", scaleTarget(hpa), minReplicas(hpa), hpa.Status.CurrentReplicas, hpa.Spec.MaxReplicas)
	return details
}

func scaleTarget(hpa *autoscalingv2.HorizontalPodAutoscaler) string {
	return fmt.Sprintf("%s/%s", hpa.Spec.ScaleTargetRef.Kind, hpa.Spec.ScaleTargetRef.Name)
}

// minReplicas applies the API default of 1.
func minReplicas(hpa *autoscalingv2.HorizontalPodAutoscaler) int32 {
	if hpa.Spec.MinReplicas == nil {
		return 1
	}
	return *hpa.Spec.MinReplicas
}

func describeMetricSpec(metric autoscalingv2.MetricSpec) (string, string) {
	switch {
	case metric.Resource != nil:
		return string(metric.Resource.Name), describeTarget(metric.Resource.Target)
	case metric.ContainerResource != nil:
		return metric.ContainerResource.Container + "/" + string(metric.ContainerResource.Name), describeTarget(metric.ContainerResource.Target)
	case metric.Pods != nil:
		return metric.Pods.Metric.Name, describeTarget(metric.Pods.Target)
	case metric.Object != nil:
		name := fmt.Sprintf("%s on %s/%s", metric.Object.Metric.Name, metric.Object.DescribedObject.Kind, metric.Object.DescribedObject.Name)
		return name, describeTarget(metric.Object.Target)
	case metric.External != nil:
		return metric.External.Metric.Name, describeTarget(metric.External.Target)
	}
	return "", "-"
}

func describeMetricStatus(metric autoscalingv2.MetricStatus) (string, string) {
	switch {
	case metric.Resource != nil:
		return string(metric.Resource.Name), describeValue(metric.Resource.Current)
	case metric.ContainerResource != nil:
		return metric.ContainerResource.Container + "/" + string(metric.ContainerResource.Name), describeValue(metric.ContainerResource.Current)
	case metric.Pods != nil:
		return metric.Pods.Metric.Name, describeValue(metric.Pods.Current)
	case metric.Object != nil:
		name := fmt.Sprintf("%s on %s/%s", metric.Object.Metric.Name, metric.Object.DescribedObject.Kind, metric.Object.DescribedObject.Name)
		return name, describeValue(metric.Object.Current)
	case metric.External != nil:
		return metric.External.Metric.Name, describeValue(metric.External.Current)
	}
	return "", "-"
}

func describeTarget(target autoscalingv2.MetricTarget) string {
	switch {
	case target.AverageUtilization != nil:
		return fmt.Sprintf("%d%%", *target.AverageUtilization)
	case target.AverageValue != nil:
		return target.AverageValue.String() + " (avg)"
	case target.Value != nil:
		return target.Value.String()
	}
	return "-"
}

func describeValue(value autoscalingv2.MetricValueStatus) string {
	var parts []string
	if value.AverageUtilization != nil {
		parts = append(parts, fmt.Sprintf("%d%%", *value.AverageUtilization))
	}
	if value.AverageValue != nil {
		parts = append(parts, value.AverageValue.String()+" (avg)")
	}
	if value.Value != nil {
		parts = append(parts, value.Value.String())
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func buildScalingRules(rules *autoscalingv2.HPAScalingRules) *restypes.ScalingRules {
	if rules == nil {
		return nil
	}
	result := &restypes.ScalingRules{
		StabilizationWindowSeconds: rules.StabilizationWindowSeconds,
	}
	if rules.SelectPolicy != nil {
		result.SelectPolicy = string(*rules.SelectPolicy)
	}
	for _, policy := range rules.Policies {
		result.Policies = append(result.Policies, fmt.Sprintf("Type: %s, Value: %d, PeriodSeconds: %d", policy.Type, policy.Value, policy.PeriodSeconds))
	}
	return result
}
