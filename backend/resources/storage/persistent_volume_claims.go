package storage

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func PersistentVolumeClaimKind() generic.Kind[restypes.NsStorageInfo, *restypes.PersistentVolumeClaimDetails] {
	return generic.Kind[restypes.NsStorageInfo, *restypes.PersistentVolumeClaimDetails]{
		Name:       "PersistentVolumeClaim",
		Aliases:    []string{"pvc"},
		GVR:        PersistentVolumeClaimGVR,
		Namespaced: true,
		Watchable:  true,
		ListItem: generic.Project(func(pvc *corev1.PersistentVolumeClaim) restypes.NsStorageInfo {
			return restypes.NsStorageInfo{
				Kind:         "PersistentVolumeClaim",
				Name:         pvc.Name,
				Namespace:    pvc.Namespace,
				Capacity:     claimCapacity(pvc),
				Status:       string(pvc.Status.Phase),
				StorageClass: claimStorageClass(pvc),
				Age:          common.FormatAge(pvc.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(persistentVolumeClaimDetails),
	}
}

func persistentVolumeClaimDetails(pvc *corev1.PersistentVolumeClaim) *restypes.PersistentVolumeClaimDetails {
	details := &restypes.PersistentVolumeClaimDetails{
		Kind:         "PersistentVolumeClaim",
		Name:         pvc.Name,
		Namespace:    pvc.Namespace,
		Age:          common.FormatAge(pvc.CreationTimestamp.Time),
		Status:       string(pvc.Status.Phase),
		StorageClass: pvc.Spec.StorageClassName,
		VolumeName:   pvc.Spec.VolumeName,
		Capacity:     claimCapacity(pvc),
		VolumeMode:   string(corev1.PersistentVolumeFilesystem),
		Labels:       pvc.Labels,
		Annotations:  pvc.Annotations,
	}

	for _, mode := range pvc.Spec.AccessModes {
		details.AccessModes = append(details.AccessModes, string(mode))
	}
	if pvc.Spec.VolumeMode != nil {
		details.VolumeMode = string(*pvc.Spec.VolumeMode)
	}
	if pvc.Spec.Selector != nil && pvc.Spec.Selector.MatchLabels != nil {
		details.Selector = pvc.Spec.Selector.MatchLabels
	}

	switch {
	case pvc.Spec.DataSource != nil:
		details.DataSource = &restypes.DataSourceInfo{Kind: pvc.Spec.DataSource.Kind, Name: pvc.Spec.DataSource.Name}
	case pvc.Spec.DataSourceRef != nil:
		details.DataSource = &restypes.DataSourceInfo{Kind: pvc.Spec.DataSourceRef.Kind, Name: pvc.Spec.DataSourceRef.Name}
	}

	for _, condition := range pvc.Status.Conditions {
		condStr := fmt.Sprintf("%s: %s", condition.Type, condition.Status)
		if condition.Reason != "" {
			condStr += fmt.Sprintf(" (%s)", condition.Reason)
		}
		if condition.Message != "" {
			condStr += fmt.Sprintf(" - %s", condition.Message)
		}
		details.Conditions = append(details.Conditions, condStr)
	}

	details.Details = fmt.Sprintf("%s, %s, %s", details.Status, details.Capacity, claimStorageClass(pvc))
	return details
}

// claimCapacity prefers the provisioned size over the requested one.
func claimCapacity(pvc *corev1.PersistentVolumeClaim) string {
	if storage, ok := pvc.Status.Capacity[corev1.ResourceStorage]; ok {
		return storage.String()
	}
	if storage, ok := pvc.Spec.Resources.Requests[corev1.ResourceStorage]; ok {
		return storage.String()
	}
	return ""
}

func claimStorageClass(pvc *corev1.PersistentVolumeClaim) string {
	if pvc.Spec.StorageClassName == nil {
		return "default"
	}
	return *pvc.Spec.StorageClassName
}
