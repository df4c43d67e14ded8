/*
 * backend/resources/config/secrets.go
 *
 * Secret projections.
 * - List rows never carry values; detail views decode them.
 */

package config

import (
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func SecretKind() generic.Kind[restypes.NsConfigInfo, *restypes.SecretDetails] {
	return generic.Kind[restypes.NsConfigInfo, *restypes.SecretDetails]{
		Name:       "Secret",
		GVR:        SecretGVR,
		Namespaced: true,
		Watchable:  true,
		ListItem:   generic.Project(secretRow),
		Detail:     generic.Project(secretDetails),
	}
}

func secretRow(secret *corev1.Secret) restypes.NsConfigInfo {
	return restypes.NsConfigInfo{
		Kind:      "Secret",
		TypeAlias: secretType(secret),
		Name:      secret.Name,
		Namespace: secret.Namespace,
		Data:      len(secret.Data),
		Age:       common.FormatAge(secret.CreationTimestamp.Time),
	}
}

func secretDetails(secret *corev1.Secret) *restypes.SecretDetails {
	details := &restypes.SecretDetails{
		Kind:        "Secret",
		Name:        secret.Name,
		Namespace:   secret.Namespace,
		Age:         common.FormatAge(secret.CreationTimestamp.Time),
		SecretType:  secretType(secret),
		DataCount:   len(secret.Data),
		DataKeys:    []string{},
		Labels:      secret.Labels,
		Annotations: secret.Annotations,
		Data:        make(map[string]string, len(secret.Data)),
	}

	// The converter has already base64-decoded the values.
	for key, value := range secret.Data {
		details.DataKeys = append(details.DataKeys, key)
		details.Data[key] = string(value)
	}
	sort.Strings(details.DataKeys)

	details.Details = fmt.Sprintf("%s, %d key(s)", details.SecretType, details.DataCount)
	return details
}

func secretType(secret *corev1.Secret) string {
	if secret.Type == "" {
		return string(corev1.SecretTypeOpaque)
	}
	return string(secret.Type)
}
