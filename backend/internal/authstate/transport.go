package authstate

import (
	"net/http"
)

// AuthAwareTransport wraps an http.RoundTripper and turns 401 responses into
// AuthInvalidError values, recording the outcome on the manager.
type AuthAwareTransport struct {
	base    http.RoundTripper
	manager *Manager
}

// WrapTransport returns an auth-aware wrapper around base. It has the shape of
// rest.Config.WrapTransport. If base is nil, http.DefaultTransport is used.
func (m *Manager) WrapTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthAwareTransport{
		base:    base,
		manager: m,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *AuthAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.manager.ReportFailure("401 Unauthorized")
		resp.Body.Close()
		return nil, &AuthInvalidError{
			Reason: "401 Unauthorized",
			State:  StateInvalid,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		t.manager.ReportSuccess()
	}
	return resp, nil
}

// WrappedRoundTripper exposes the base transport to client-go's transport
// inspection helpers.
func (t *AuthAwareTransport) WrappedRoundTripper() http.RoundTripper {
	return t.base
}
