package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend"
	"github.com/luxury-yacht/dashboard/backend/api"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/portforward"
	resconfig "github.com/luxury-yacht/dashboard/backend/resources/config"
	"github.com/luxury-yacht/dashboard/backend/resources/storage"
	"github.com/luxury-yacht/dashboard/backend/testsupport"
)

type fakeTunnel struct {
	done      chan struct{}
	closeOnce sync.Once
}

func (f *fakeTunnel) Forward(_ context.Context, conn net.Conn) error {
	return conn.Close()
}

func (f *fakeTunnel) Done() <-chan struct{} { return f.done }

func (f *fakeTunnel) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

type fakeDialer struct{}

func (fakeDialer) Dial(context.Context, *cluster.Clients, string, string, int) (portforward.Tunnel, error) {
	return &fakeTunnel{done: make(chan struct{})}, nil
}

type testServer struct {
	*httptest.Server
	app     *backend.App
	cluster *testsupport.Cluster
}

func newTestServer(t *testing.T, opts ...testsupport.ClusterOption) *testServer {
	t.Helper()
	opts = append(opts, testsupport.WithListKinds(map[schema.GroupVersionResource]string{
		resconfig.ConfigMapGVR:           "ConfigMapList",
		resconfig.SecretGVR:              "SecretList",
		storage.StorageClassGVR:          "StorageClassList",
		storage.PersistentVolumeClaimGVR: "PersistentVolumeClaimList",
	}))
	fc := testsupport.NewCluster(t, opts...)
	app := backend.NewApp(backend.Options{Build: fc.Build, Dialer: fakeDialer{}})
	srv := httptest.NewServer(api.NewServer(app).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = app.Shutdown(context.Background())
	})
	return &testServer{Server: srv, app: app, cluster: fc}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal([]byte(body), &out), body)
	return out
}

func withAppConfig() testsupport.ClusterOption {
	return testsupport.WithDynamicObjects(
		testsupport.ConfigMapFixture("default", "app", map[string]string{"mode": "prod"}),
		testsupport.ConfigMapFixture("other", "unrelated", nil),
	)
}

func TestListResources(t *testing.T) {
	srv := newTestServer(t, withAppConfig())

	resp, body := srv.do(t, http.MethodGet, "/api/resources/cm?namespace=default", "", api.CorrelationIDHeader, "abc123")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "abc123", resp.Header.Get(api.CorrelationIDHeader))

	rows := decode[[]map[string]any](t, body)
	require.Len(t, rows, 1)
	require.Equal(t, "app", rows[0]["name"])

	_, body = srv.do(t, http.MethodGet, "/api/resources/configmaps", "")
	require.Len(t, decode[[]map[string]any](t, body), 2)
}

func TestErrorsCarryStatusAndCorrelationID(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/api/resources/deployments", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	id := resp.Header.Get(api.CorrelationIDHeader)
	require.Len(t, id, 8)

	payload := decode[map[string]string](t, body)
	require.Equal(t, "Not Found", payload["code"])
	require.Equal(t, id, payload["correlationId"])
	require.Contains(t, payload["message"], `resource kind "deployments" not found`)

	resp, _ = srv.do(t, http.MethodGet, "/api/resources/configmaps/default/missing", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = srv.do(t, http.MethodGet, "/api/resources/nodepools", "")
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	require.Contains(t, body, "Karpenter")
}

func TestGetDetailAndClusterScopedPlaceholder(t *testing.T) {
	srv := newTestServer(t, withAppConfig(), testsupport.WithDynamicObjects(testsupport.StorageClassFixture("standard")))

	resp, body := srv.do(t, http.MethodGet, "/api/resources/configmap/default/app", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[map[string]any](t, body)
	require.Equal(t, map[string]any{"mode": "prod"}, detail["data"])

	resp, body = srv.do(t, http.MethodGet, "/api/resources/sc/_/standard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "standard", decode[map[string]any](t, body)["name"])
}

func TestManifestRoundTrip(t *testing.T) {
	srv := newTestServer(t, withAppConfig())

	resp, body := srv.do(t, http.MethodGet, "/api/resources/configmaps/default/app/manifest", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	require.Contains(t, body, "kind: ConfigMap")
	require.Contains(t, body, "mode: prod")

	edited := strings.Replace(body, "mode: prod", "mode: staging", 1)
	resp, body = srv.do(t, http.MethodPut, "/api/resources/configmaps/default/app/manifest", edited)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, map[string]any{"mode": "staging"}, decode[map[string]any](t, body)["data"])

	resp, body = srv.do(t, http.MethodPut, "/api/resources/configmaps/default/app/manifest", "kind: Secret\napiVersion: v1\nmetadata:\n  name: app\n")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "does not match ConfigMap")
}

func TestDeleteResource(t *testing.T) {
	srv := newTestServer(t, withAppConfig())

	resp, _ := srv.do(t, http.MethodDelete, "/api/resources/configmaps/default/app", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/resources/configmaps/default/app", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestKindsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, body := srv.do(t, http.MethodGet, "/api/kinds", "")
	kinds := decode[[]map[string]any](t, body)
	require.Len(t, kinds, 13)
	require.Equal(t, "ClusterRole", kinds[0]["name"])
}

func TestNamespaceUsage(t *testing.T) {
	srv := newTestServer(t, testsupport.WithPodMetrics(
		testsupport.PodMetricsFixture("default", "web-1", 250, 64<<20),
		testsupport.PodMetricsFixture("default", "web-2", 250, 64<<20),
		testsupport.PodMetricsFixture("jobs", "batch", 100, 32<<20),
	))

	resp, body := srv.do(t, http.MethodGet, "/api/usage/_", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	usage := decode[[]map[string]any](t, body)
	require.Len(t, usage, 2)
	require.Equal(t, "default", usage[0]["namespace"])
	require.EqualValues(t, 2, usage[0]["pods"])
}

func TestSystemEndpoints(t *testing.T) {
	srv := newTestServer(t)
	srv.app.Logger.Info("first", "Test")
	srv.app.Logger.Warn("second", "Test")

	resp, body := srv.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, body)
	require.Equal(t, "ok", health["status"])

	_, body = srv.do(t, http.MethodGet, "/api/app-logs", "")
	entries := decode[[]backend.LogEntry](t, body)
	require.GreaterOrEqual(t, len(entries), 2)
	last := entries[len(entries)-1]

	_, body = srv.do(t, http.MethodGet, "/api/app-logs?since="+strconv.FormatUint(last.Sequence-1, 10), "")
	entries = decode[[]backend.LogEntry](t, body)
	require.Len(t, entries, 1)
	require.Equal(t, "second", entries[0].Message)

	resp, _ = srv.do(t, http.MethodGet, "/api/app-logs?since=soon", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = srv.do(t, http.MethodGet, "/api/telemetry", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "portForwards")

	resp, body = srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "portforward_active_sessions")
}
