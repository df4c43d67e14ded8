// Package authstate tracks whether the active cluster credentials are usable.
// The transport wrapper reports 401 responses as AuthInvalidError so callers
// can decide to refresh credentials and retry.
package authstate

// State represents the current authentication state.
type State int

const (
	// StateValid indicates the last request authenticated successfully.
	StateValid State = iota
	// StateInvalid indicates the API server rejected the credentials.
	StateInvalid
	// StateRefreshing indicates a credential refresh is in flight.
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}
