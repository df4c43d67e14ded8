package apiextensions

import (
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

func CustomResourceDefinitionKind() generic.Kind[restypes.ClsCRDInfo, *restypes.CustomResourceDefinitionDetails] {
	return generic.Kind[restypes.ClsCRDInfo, *restypes.CustomResourceDefinitionDetails]{
		Name:      "CustomResourceDefinition",
		Aliases:   []string{"crd"},
		GVR:       CustomResourceDefinitionGVR,
		Watchable: true,
		ListItem: generic.Project(func(crd *apiextensionsv1.CustomResourceDefinition) restypes.ClsCRDInfo {
			return restypes.ClsCRDInfo{
				Kind:      "CustomResourceDefinition",
				TypeAlias: "CRD",
				Name:      crd.Name,
				Group:     crd.Spec.Group,
				Scope:     string(crd.Spec.Scope),
				Details:   crdSummary(crd),
				Age:       common.FormatAge(crd.CreationTimestamp.Time),
			}
		}),
		Detail: generic.Project(crdDetails),
	}
}

func crdDetails(crd *apiextensionsv1.CustomResourceDefinition) *restypes.CustomResourceDefinitionDetails {
	details := &restypes.CustomResourceDefinitionDetails{
		Kind:           "CustomResourceDefinition",
		Name:           crd.Name,
		Group:          crd.Spec.Group,
		Scope:          string(crd.Spec.Scope),
		Age:            common.FormatAge(crd.CreationTimestamp.Time),
		Details:        crdSummary(crd),
		Versions:       make([]restypes.CRDVersion, 0, len(crd.Spec.Versions)),
		Established:    established(crd),
		StoredVersions: crd.Status.StoredVersions,
		Labels:         crd.Labels,
		Annotations:    crd.Annotations,
		Names: restypes.CRDNames{
			Plural:     crd.Spec.Names.Plural,
			Singular:   crd.Spec.Names.Singular,
			Kind:       crd.Spec.Names.Kind,
			ListKind:   crd.Spec.Names.ListKind,
			ShortNames: crd.Spec.Names.ShortNames,
			Categories: crd.Spec.Names.Categories,
		},
	}

	for _, version := range crd.Spec.Versions {
		entry := restypes.CRDVersion{
			Name:       version.Name,
			Served:     version.Served,
			Storage:    version.Storage,
			Deprecated: version.Deprecated,
			HasSchema:  version.Schema != nil && version.Schema.OpenAPIV3Schema != nil,
		}
		for _, column := range version.AdditionalPrinterColumns {
			entry.Columns = append(entry.Columns, column.Name)
		}
		details.Versions = append(details.Versions, entry)
	}

	if crd.Spec.Conversion != nil {
		details.ConversionStrategy = string(crd.Spec.Conversion.Strategy)
	}

	for _, condition := range crd.Status.Conditions {
		details.Conditions = append(details.Conditions, restypes.CRDCondition{
			Type:               string(condition.Type),
			Status:             string(condition.Status),
			Reason:             condition.Reason,
			Message:            condition.Message,
			LastTransitionTime: condition.LastTransitionTime,
		})
	}
	return details
}

func crdSummary(crd *apiextensionsv1.CustomResourceDefinition) string {
	summary := fmt.Sprintf("Group: %s, Scope: %s", crd.Spec.Group, crd.Spec.Scope)
	if len(crd.Spec.Versions) > 0 {
		summary += fmt.Sprintf(", Versions: %d", len(crd.Spec.Versions))
	}
	if !established(crd) {
		summary += ", Not established"
	}
	return summary
}

func established(crd *apiextensionsv1.CustomResourceDefinition) bool {
	for _, condition := range crd.Status.Conditions {
		if condition.Type == apiextensionsv1.Established {
			return condition.Status == apiextensionsv1.ConditionTrue
		}
	}
	return false
}
