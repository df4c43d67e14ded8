/*
 * backend/resources/config/configmaps.go
 *
 * ConfigMap projections.
 * - Builds detail and list views for the frontend.
 */

package config

import (
	"encoding/base64"
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func ConfigMapKind() generic.Kind[restypes.NsConfigInfo, *restypes.ConfigMapDetails] {
	return generic.Kind[restypes.NsConfigInfo, *restypes.ConfigMapDetails]{
		Name:       "ConfigMap",
		Aliases:    []string{"cm"},
		GVR:        ConfigMapGVR,
		Namespaced: true,
		Watchable:  true,
		ListItem:   generic.Project(configMapRow),
		Detail:     generic.Project(configMapDetails),
	}
}

func configMapRow(cm *corev1.ConfigMap) restypes.NsConfigInfo {
	return restypes.NsConfigInfo{
		Kind:      "ConfigMap",
		TypeAlias: "CM",
		Name:      cm.Name,
		Namespace: cm.Namespace,
		Data:      len(cm.Data) + len(cm.BinaryData),
		Age:       common.FormatAge(cm.CreationTimestamp.Time),
	}
}

func configMapDetails(cm *corev1.ConfigMap) *restypes.ConfigMapDetails {
	details := &restypes.ConfigMapDetails{
		Kind:        "ConfigMap",
		Name:        cm.Name,
		Namespace:   cm.Namespace,
		Age:         common.FormatAge(cm.CreationTimestamp.Time),
		Data:        cm.Data,
		DataCount:   len(cm.Data) + len(cm.BinaryData),
		Immutable:   cm.Immutable != nil && *cm.Immutable,
		Labels:      cm.Labels,
		Annotations: cm.Annotations,
	}

	if len(cm.BinaryData) > 0 {
		details.BinaryData = make(map[string]string, len(cm.BinaryData))
		for key, value := range cm.BinaryData {
			details.BinaryData[key] = base64.StdEncoding.EncodeToString(value)
		}
	}

	details.Details = fmt.Sprintf("Data items: %d", details.DataCount)
	if details.Immutable {
		details.Details += ", Immutable"
	}
	return details
}
