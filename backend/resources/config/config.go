/*
 * backend/resources/config/config.go
 *
 * Config service wiring.
 * - ConfigMap and Secret kinds over the generic resource service.
 */

package config

import (
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var (
	ConfigMapGVR = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}
	SecretGVR    = schema.GroupVersionResource{Version: "v1", Resource: "secrets"}
)

type Service struct {
	ConfigMaps *generic.Service[restypes.NsConfigInfo, *restypes.ConfigMapDetails]
	Secrets    *generic.Service[restypes.NsConfigInfo, *restypes.SecretDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{
		ConfigMaps: generic.NewService(deps, ConfigMapKind()),
		Secrets:    generic.NewService(deps, SecretKind()),
	}
}

// Accessors returns the type-erased services for registration.
func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.ConfigMaps.Accessor(), s.Secrets.Accessor()}
}
