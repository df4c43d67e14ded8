package storage

import (
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var (
	PersistentVolumeClaimGVR = schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumeclaims"}
	StorageClassGVR          = schema.GroupVersionResource{Group: "storage.k8s.io", Version: "v1", Resource: "storageclasses"}
)

type Service struct {
	PersistentVolumeClaims *generic.Service[restypes.NsStorageInfo, *restypes.PersistentVolumeClaimDetails]
	StorageClasses         *generic.Service[restypes.ClsStorageClassInfo, *restypes.StorageClassDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{
		PersistentVolumeClaims: generic.NewService(deps, PersistentVolumeClaimKind()),
		StorageClasses:         generic.NewService(deps, StorageClassKind()),
	}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.PersistentVolumeClaims.Accessor(), s.StorageClasses.Accessor()}
}
