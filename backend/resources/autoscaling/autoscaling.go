/*
 * backend/resources/autoscaling/autoscaling.go
 *
 * Autoscaling service wiring.
 * - HorizontalPodAutoscalers (autoscaling/v2) over the generic resource service.
 */

package autoscaling

import (
	autoscalingv2 "k8s.io/api/autoscaling/v2"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var HorizontalPodAutoscalerGVR = autoscalingv2.SchemeGroupVersion.WithResource("horizontalpodautoscalers")

type Service struct {
	HorizontalPodAutoscalers *generic.Service[restypes.NsAutoscalingInfo, *restypes.HorizontalPodAutoscalerDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{
		HorizontalPodAutoscalers: generic.NewService(deps, HorizontalPodAutoscalerKind()),
	}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.HorizontalPodAutoscalers.Accessor()}
}
