package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/luxury-yacht/dashboard/backend"
	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/config"
)

const (
	// CorrelationIDHeader is the HTTP header used for request correlation.
	CorrelationIDHeader = "X-Correlation-ID"

	// clusterScope stands in for the empty namespace in object paths.
	clusterScope = "_"

	maxBodyBytes = 4 << 20
	logSource    = "API"
)

type correlationKey struct{}

// Server exposes the backend services over HTTP.
type Server struct {
	app      *backend.App
	upgrader websocket.Upgrader
}

// NewServer constructs an API server for app.
func NewServer(app *backend.App) *Server {
	return &Server{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   config.StreamReadBufferSize,
			WriteBufferSize:  config.StreamWriteBufferSize,
			HandshakeTimeout: config.StreamHandshakeTimeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed API with correlation IDs applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return withCorrelationID(mux)
}

// Register attaches the API routes to the provided mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/kinds", s.handleKinds)
	mux.HandleFunc("GET /api/resources/{kind}", s.handleList)
	mux.HandleFunc("GET /api/resources/{kind}/{namespace}/{name}", s.handleGet)
	mux.HandleFunc("DELETE /api/resources/{kind}/{namespace}/{name}", s.handleDelete)
	mux.HandleFunc("GET /api/resources/{kind}/{namespace}/{name}/manifest", s.handleManifest)
	mux.HandleFunc("PUT /api/resources/{kind}/{namespace}/{name}/manifest", s.handleUpdateManifest)
	mux.HandleFunc("GET /api/stream/{kind}", s.handleStream)
	mux.HandleFunc("GET /api/usage/{namespace}", s.handleNamespaceUsage)

	mux.HandleFunc("GET /api/logs/{namespace}/{pod}", s.handleLogs)
	mux.HandleFunc("GET /api/pods/{namespace}/{pod}/containers", s.handleContainers)
	mux.HandleFunc("GET /api/pods/{namespace}/{pod}/ports", s.handlePorts)
	mux.HandleFunc("POST /api/exec/{namespace}/{pod}", s.handleExec)
	mux.HandleFunc("GET /api/portforwards", s.handleListPortForwards)
	mux.HandleFunc("POST /api/portforwards", s.handleStartPortForward)
	mux.HandleFunc("DELETE /api/portforwards/{id}", s.handleStopPortForward)

	mux.HandleFunc("GET /api/app-logs", s.handleAppLogs)
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	mux.Handle("GET /metrics", s.app.Telemetry.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// withCorrelationID reuses the caller's correlation ID or issues a new one and
// echoes it on every response.
func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()[:8] // Short 8-char ID for readability
		}
		w.Header().Set(CorrelationIDHeader, id)

		started := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey{}, id)))
		klog.V(2).Infof("[%s] %s %s (%s)", id, r.Method, r.URL.Path, time.Since(started).Round(time.Millisecond))
	})
}

func correlationID(r *http.Request) string {
	id, _ := r.Context().Value(correlationKey{}).(string)
	return id
}

// errorBody is the JSON payload of every failed request.
type errorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	id := correlationID(r)
	if status >= http.StatusInternalServerError {
		s.app.Logger.Error(fmt.Sprintf("[%s] %s %s failed: %v", id, r.Method, r.URL.Path, err), logSource)
	} else {
		s.app.Logger.Debug(fmt.Sprintf("[%s] %s %s: %v", id, r.Method, r.URL.Path, err), logSource)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Code:          http.StatusText(status),
		Message:       err.Error(),
		CorrelationID: id,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewValidation("body", "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, apperrors.NewTransport("read request body", err)
	}
	return data, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewValidation("body", "invalid JSON: %v", err)
	}
	return nil
}

// namespaceValue maps the cluster-scope placeholder to the empty namespace.
func namespaceValue(raw string) string {
	if raw == clusterScope {
		return ""
	}
	return raw
}
