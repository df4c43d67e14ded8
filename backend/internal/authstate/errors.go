package authstate

import "fmt"

// AuthInvalidError represents an authentication failure observed on the wire.
type AuthInvalidError struct {
	// Reason describes why authentication is invalid (e.g. "401 Unauthorized").
	Reason string
	// State is the auth state at the time the error was created.
	State State
}

func (e *AuthInvalidError) Error() string {
	return fmt.Sprintf("auth invalid: %s", e.Reason)
}

// Is matches any *AuthInvalidError so errors.Is works on wrapped chains.
func (e *AuthInvalidError) Is(target error) bool {
	_, ok := target.(*AuthInvalidError)
	return ok
}
