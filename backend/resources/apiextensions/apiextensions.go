/*
 * backend/resources/apiextensions/apiextensions.go
 *
 * APIExtensions service wiring.
 * - CustomResourceDefinitions over the generic resource service.
 */

package apiextensions

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var CustomResourceDefinitionGVR = apiextensionsv1.SchemeGroupVersion.WithResource("customresourcedefinitions")

type Service struct {
	CustomResourceDefinitions *generic.Service[restypes.ClsCRDInfo, *restypes.CustomResourceDefinitionDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{
		CustomResourceDefinitions: generic.NewService(deps, CustomResourceDefinitionKind()),
	}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.CustomResourceDefinitions.Accessor()}
}
