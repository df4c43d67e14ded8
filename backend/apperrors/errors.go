/*
 * backend/apperrors/errors.go
 *
 * Error taxonomy shared by the resource, stream and session layers.
 * - Typed errors callers can match with errors.As.
 * - Translation from apimachinery status errors.
 */

package apperrors

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for the named field.
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports that the requested state collides with existing state,
// e.g. a local port that is already bound.
type ConflictError struct {
	Resource string
	Message  string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("conflict: %s", e.Message)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Message)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError reports a missing resource or session.
type NotFoundError struct {
	Kind      string
	Namespace string
	Name      string
}

func (e *NotFoundError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %s/%s not found", e.Kind, e.Namespace, e.Name)
}

// TransportError wraps network, watch and stream failures.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: transport failure", e.Operation)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransport wraps err as a TransportError unless it already is one.
func NewTransport(operation string, err error) error {
	var existing *TransportError
	if errors.As(err, &existing) {
		return err
	}
	return &TransportError{Operation: operation, Err: err}
}

// UnavailableFeatureError reports a resource kind whose CRD is not installed.
type UnavailableFeatureError struct {
	Feature string
	CRD     string
}

func (e *UnavailableFeatureError) Error() string {
	return fmt.Sprintf("%s is not available on this cluster: the %s custom resource definition is not installed", e.Feature, e.CRD)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err carries a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsUnavailableFeature reports whether err carries an UnavailableFeatureError.
func IsUnavailableFeature(err error) bool {
	var target *UnavailableFeatureError
	return errors.As(err, &target)
}

// IsAuthExpired reports whether err is an authentication failure: either a 401
// status from the API server or a request rejected by the auth-aware transport.
func IsAuthExpired(err error) bool {
	if err == nil {
		return false
	}
	var authErr *authstate.AuthInvalidError
	if errors.As(err, &authErr) {
		return true
	}
	return apierrors.IsUnauthorized(err)
}

// FromAPI translates an apimachinery status error for the given object into the
// taxonomy. Errors that carry no recognised status are returned unchanged.
func FromAPI(kind, namespace, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsAuthExpired(err):
		return err
	case apierrors.IsNotFound(err):
		return fmt.Errorf("%w: %w", &NotFoundError{Kind: kind, Namespace: namespace, Name: name}, err)
	case apierrors.IsConflict(err), apierrors.IsAlreadyExists(err):
		return &ConflictError{Resource: kind, Message: string(apierrors.ReasonForError(err)), Err: err}
	case apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
		return fmt.Errorf("%w: %w", &ValidationError{Field: "object", Message: "rejected by the API server"}, err)
	}
	return err
}
