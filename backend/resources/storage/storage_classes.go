/*
 * backend/resources/storage/storage_classes.go
 *
 * StorageClass projections.
 * - Applies the API server defaults for unset policy fields.
 */

package storage

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

const defaultClassAnnotation = "storageclass.kubernetes.io/is-default-class"

func StorageClassKind() generic.Kind[restypes.ClsStorageClassInfo, *restypes.StorageClassDetails] {
	return generic.Kind[restypes.ClsStorageClassInfo, *restypes.StorageClassDetails]{
		Name:      "StorageClass",
		Aliases:   []string{"sc"},
		GVR:       StorageClassGVR,
		Watchable: true,
		ListItem: generic.Project(func(sc *storagev1.StorageClass) restypes.ClsStorageClassInfo {
			return restypes.ClsStorageClassInfo{
				Kind:              "StorageClass",
				Name:              sc.Name,
				Provisioner:       sc.Provisioner,
				ReclaimPolicy:     reclaimPolicy(sc),
				VolumeBindingMode: bindingMode(sc),
				AllowExpansion:    sc.AllowVolumeExpansion != nil && *sc.AllowVolumeExpansion,
				IsDefault:         sc.Annotations[defaultClassAnnotation] == "true",
				Age:               common.FormatAge(sc.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(storageClassDetails),
	}
}

func storageClassDetails(sc *storagev1.StorageClass) *restypes.StorageClassDetails {
	details := &restypes.StorageClassDetails{
		Kind:                 "StorageClass",
		Name:                 sc.Name,
		Age:                  common.FormatAge(sc.CreationTimestamp.Time),
		IsDefault:            sc.Annotations[defaultClassAnnotation] == "true",
		Provisioner:          sc.Provisioner,
		ReclaimPolicy:        reclaimPolicy(sc),
		VolumeBindingMode:    bindingMode(sc),
		AllowVolumeExpansion: sc.AllowVolumeExpansion != nil && *sc.AllowVolumeExpansion,
		Parameters:           sc.Parameters,
		MountOptions:         sc.MountOptions,
		Labels:               sc.Labels,
		Annotations:          sc.Annotations,
	}

	for _, topology := range sc.AllowedTopologies {
		selector := restypes.TopologySelector{}
		for _, expr := range topology.MatchLabelExpressions {
			selector.MatchLabelExpressions = append(selector.MatchLabelExpressions, restypes.TopologyLabelRequirement{
				Key:    expr.Key,
				Values: expr.Values,
			})
		}
		details.AllowedTopologies = append(details.AllowedTopologies, selector)
	}

	provisionerInfo := sc.Provisioner
	if details.IsDefault {
		provisionerInfo += " (default)"
	}
	details.Details = fmt.Sprintf("%s, Reclaim: %s, Binding: %s", provisionerInfo, details.ReclaimPolicy, details.VolumeBindingMode)
	if details.AllowVolumeExpansion {
		details.Details += ", Expandable"
	}
	return details
}

func reclaimPolicy(sc *storagev1.StorageClass) string {
	if sc.ReclaimPolicy == nil {
		return string(corev1.PersistentVolumeReclaimDelete)
	}
	return string(*sc.ReclaimPolicy)
}

func bindingMode(sc *storagev1.StorageClass) string {
	if sc.VolumeBindingMode == nil {
		return string(storagev1.VolumeBindingImmediate)
	}
	return string(*sc.VolumeBindingMode)
}
