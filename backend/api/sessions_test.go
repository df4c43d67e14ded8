package api_test

import (
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxury-yacht/dashboard/backend/portforward"
	"github.com/luxury-yacht/dashboard/backend/testsupport"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestLogsStreamAsPlainText(t *testing.T) {
	srv := newTestServer(t, testsupport.WithKubeObjects(testsupport.PodFixture("default", "web")))

	resp, body := srv.do(t, http.MethodGet, "/api/logs/default/web?follow=false&tailLines=10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Equal(t, "fake logs", body)

	resp, body = srv.do(t, http.MethodGet, "/api/logs/default/web?tailLines=-1", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "tailLines")
}

func TestContainersAndPorts(t *testing.T) {
	srv := newTestServer(t, testsupport.WithKubeObjects(
		testsupport.PodFixture("default", "web", testsupport.PodWithInitContainer("setup")),
	))

	resp, body := srv.do(t, http.MethodGet, "/api/pods/default/web/containers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	containers := decode[[]map[string]any](t, body)
	require.Len(t, containers, 2)
	require.Equal(t, "setup", containers[0]["name"])
	require.Equal(t, true, containers[0]["init"])

	resp, body = srv.do(t, http.MethodGet, "/api/pods/default/web/ports", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ports := decode[[]portforward.ContainerPort](t, body)
	require.Equal(t, []portforward.ContainerPort{{Port: 80, Name: "http", Protocol: "TCP", Container: "app"}}, ports)
}

func TestExecValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/exec/default/web", `{"command": []}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "a command is required")

	resp, _ = srv.do(t, http.MethodPost, "/api/exec/default/web", `{"command": "ls"`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPortForwardLifecycle(t *testing.T) {
	srv := newTestServer(t)
	port := freePort(t)

	resp, body := srv.do(t, http.MethodPost, "/api/portforwards",
		fmt.Sprintf(`{"namespace":"default","pod":"web","localPort":%d,"targetPort":8080}`, port))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	session := decode[portforward.Session](t, body)
	require.NotEmpty(t, session.ID)
	require.Equal(t, port, session.LocalPort)
	require.Equal(t, 8080, session.TargetPort)

	resp, body = srv.do(t, http.MethodPost, "/api/portforwards",
		fmt.Sprintf(`{"namespace":"default","pod":"web","localPort":%d,"targetPort":9090}`, port))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, body, "already in use")

	_, body = srv.do(t, http.MethodGet, "/api/portforwards", "")
	sessions := decode[[]portforward.Session](t, body)
	require.Len(t, sessions, 1)
	require.Equal(t, session.ID, sessions[0].ID)

	resp, _ = srv.do(t, http.MethodDelete, "/api/portforwards/"+session.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = srv.do(t, http.MethodDelete, "/api/portforwards/"+session.ID, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = srv.do(t, http.MethodGet, "/api/portforwards", "")
	require.Empty(t, decode[[]portforward.Session](t, body))
}

func TestPortForwardValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/portforwards", `{"namespace":"default","pod":"web","localPort":0,"targetPort":80}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "outside the range")
}
