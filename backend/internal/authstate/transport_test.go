package authstate

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransportConvertsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	manager := New(Config{})
	client := &http.Client{Transport: manager.WrapTransport(http.DefaultTransport)}

	resp, err := client.Get(server.URL)
	require.Nil(t, resp)
	require.Error(t, err)

	var authErr *AuthInvalidError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, StateInvalid, authErr.State)

	state, reason := manager.State()
	require.Equal(t, StateInvalid, state)
	require.Equal(t, "401 Unauthorized", reason)
}

func TestTransportDoesNotBlockWhileInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	manager := New(Config{})
	manager.ReportFailure("401 Unauthorized")
	client := &http.Client{Transport: manager.WrapTransport(nil)}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.True(t, manager.IsValid())
}

func TestTransportPassesThroughOtherStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	manager := New(Config{})
	client := &http.Client{Transport: manager.WrapTransport(http.DefaultTransport)}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.True(t, manager.IsValid())
}

type failingRoundTripper struct{ err error }

func (f failingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) { return nil, f.err }

func TestTransportPassesThroughNetworkErrors(t *testing.T) {
	boom := errors.New("connection refused")
	manager := New(Config{})
	rt := manager.WrapTransport(failingRoundTripper{err: boom})

	req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, boom)
	require.True(t, manager.IsValid())
}
