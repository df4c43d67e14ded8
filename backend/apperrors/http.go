package apperrors

import (
	"errors"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// HTTPStatus maps an error onto the status code the HTTP layer should report.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsConflict(err):
		return http.StatusConflict
	case IsNotFound(err):
		return http.StatusNotFound
	case IsUnavailableFeature(err):
		return http.StatusNotImplemented
	case IsAuthExpired(err):
		return http.StatusUnauthorized
	case IsTransport(err):
		return http.StatusBadGateway
	}
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		if code := int(status.Status().Code); code >= 400 {
			return code
		}
	}
	return http.StatusInternalServerError
}
