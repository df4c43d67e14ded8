package telemetry

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConnectionStats summarises credential retry and refresh activity.
type ConnectionStats struct {
	RetryAttempts      uint64 `json:"retryAttempts"`
	RetrySuccesses     uint64 `json:"retrySuccesses"`
	RetryExhausted     uint64 `json:"retryExhausted"`
	CredentialRefresh  uint64 `json:"credentialRefreshes"`
	RefreshFailures    uint64 `json:"refreshFailures"`
	LastRefreshReason  string `json:"lastRefreshReason,omitempty"`
	LastRetryError     string `json:"lastRetryError,omitempty"`
	LastRefreshUpdated int64  `json:"lastRefreshUpdated,omitempty"`
}

// StreamStatus captures health metrics for a streaming transport (watches, logs).
type StreamStatus struct {
	Name           string `json:"name"`
	ActiveSessions int    `json:"activeSessions"`
	TotalMessages  uint64 `json:"totalMessages"`
	ErrorCount     uint64 `json:"errorCount"`
	LastConnect    int64  `json:"lastConnect"`
	LastEvent      int64  `json:"lastEvent"`
	LastError      string `json:"lastError,omitempty"`
}

// PortForwardStats tracks port-forward session churn.
type PortForwardStats struct {
	Active      int    `json:"active"`
	Started     uint64 `json:"started"`
	Stopped     uint64 `json:"stopped"`
	Connections uint64 `json:"connections"`
	RelayErrors uint64 `json:"relayErrors"`
}

// Summary aggregates the telemetry story for diagnostics.
type Summary struct {
	Connection   ConnectionStats  `json:"connection"`
	Streams      []StreamStatus   `json:"streams"`
	PortForwards PortForwardStats `json:"portForwards"`
}

// Stream name identifiers shared with the HTTP layer.
const (
	StreamResources = "resources"
	StreamLogs      = "object-logs"
	StreamExec      = "exec"
)

// Recorder collects telemetry in memory and mirrors it into Prometheus collectors.
type Recorder struct {
	mu           sync.RWMutex
	connection   ConnectionStats
	streams      map[string]*StreamStatus
	portForwards PortForwardStats

	registry        *prometheus.Registry
	retries         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	streamSessions  *prometheus.GaugeVec
	streamMessages  *prometheus.CounterVec
	streamErrors    *prometheus.CounterVec
	forwardSessions prometheus.Gauge
	forwardConns    prometheus.Counter
}

// NewRecorder returns an empty recorder with its own Prometheus registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		streams:  make(map[string]*StreamStatus),
		registry: prometheus.NewRegistry(),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "auth_retries_total",
			Help:      "Operations retried after an authentication failure, by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "credential_refreshes_total",
			Help:      "Credential refreshes, by result.",
		}, []string{"result"}),
		streamSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "stream_active_sessions",
			Help:      "Active streaming sessions.",
		}, []string{"stream"}),
		streamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "stream_messages_total",
			Help:      "Messages delivered to stream consumers.",
		}, []string{"stream"}),
		streamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "stream_errors_total",
			Help:      "Errors raised while serving streams.",
		}, []string{"stream"}),
		forwardSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "portforward_active_sessions",
			Help:      "Active port-forward sessions.",
		}),
		forwardConns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "portforward_connections_total",
			Help:      "Local connections accepted by port-forward sessions.",
		}),
	}
	r.registry.MustRegister(
		r.retries,
		r.refreshes,
		r.streamSessions,
		r.streamMessages,
		r.streamErrors,
		r.forwardSessions,
		r.forwardConns,
	)
	return r
}

// Handler serves the recorder's collectors in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRetryAttempt notes that an operation is being retried after err.
func (r *Recorder) RecordRetryAttempt(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connection.RetryAttempts++
	if err != nil {
		r.connection.LastRetryError = err.Error()
	}
	r.retries.WithLabelValues("attempt").Inc()
}

// RecordRetrySuccess signals that the retried call succeeded.
func (r *Recorder) RecordRetrySuccess() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connection.RetrySuccesses++
	r.retries.WithLabelValues("success").Inc()
}

// RecordRetryExhausted signals that the retried call failed again.
func (r *Recorder) RecordRetryExhausted(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connection.RetryExhausted++
	if err != nil {
		r.connection.LastRetryError = err.Error()
	}
	r.retries.WithLabelValues("exhausted").Inc()
}

// RecordCredentialRefresh notes a rebuild of the client bundle.
func (r *Recorder) RecordCredentialRefresh(reason string, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connection.CredentialRefresh++
	r.connection.LastRefreshReason = reason
	r.connection.LastRefreshUpdated = time.Now().UnixMilli()
	result := "success"
	if err != nil {
		r.connection.RefreshFailures++
		result = "failure"
	}
	r.refreshes.WithLabelValues(result).Inc()
}

// RecordStreamConnect increments the active session count for a stream.
func (r *Recorder) RecordStreamConnect(name string) {
	r.updateStream(name, func(status *StreamStatus) {
		status.ActiveSessions++
		status.LastConnect = time.Now().UnixMilli()
		r.streamSessions.WithLabelValues(name).Inc()
	})
}

// RecordStreamDisconnect decrements the active session count for a stream.
func (r *Recorder) RecordStreamDisconnect(name string) {
	r.updateStream(name, func(status *StreamStatus) {
		if status.ActiveSessions > 0 {
			status.ActiveSessions--
			r.streamSessions.WithLabelValues(name).Dec()
		}
	})
}

// RecordStreamDelivery counts messages handed to a consumer.
func (r *Recorder) RecordStreamDelivery(name string, delivered int) {
	if delivered <= 0 {
		return
	}
	r.updateStream(name, func(status *StreamStatus) {
		status.TotalMessages += uint64(delivered)
		status.LastEvent = time.Now().UnixMilli()
		r.streamMessages.WithLabelValues(name).Add(float64(delivered))
	})
}

// RecordStreamError captures an error emitted while serving a stream.
func (r *Recorder) RecordStreamError(name string, err error) {
	if err == nil {
		return
	}
	r.updateStream(name, func(status *StreamStatus) {
		status.ErrorCount++
		status.LastError = err.Error()
		r.streamErrors.WithLabelValues(name).Inc()
	})
}

func (r *Recorder) updateStream(name string, fn func(*StreamStatus)) {
	if r == nil || name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.streams[name]
	if !ok {
		status = &StreamStatus{Name: name}
		r.streams[name] = status
	}
	fn(status)
}

// RecordPortForwardStart counts a new port-forward session.
func (r *Recorder) RecordPortForwardStart() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portForwards.Active++
	r.portForwards.Started++
	r.forwardSessions.Inc()
}

// RecordPortForwardStop counts a stopped port-forward session.
func (r *Recorder) RecordPortForwardStop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.portForwards.Active > 0 {
		r.portForwards.Active--
		r.forwardSessions.Dec()
	}
	r.portForwards.Stopped++
}

// RecordPortForwardConnection counts an accepted local connection and whether
// its relay failed.
func (r *Recorder) RecordPortForwardConnection(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.portForwards.RelayErrors++
		return
	}
	r.portForwards.Connections++
	r.forwardConns.Inc()
}

// SnapshotSummary returns a copy of the current telemetry summary.
func (r *Recorder) SnapshotSummary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Summary{
		Connection:   r.connection,
		Streams:      make([]StreamStatus, 0, len(r.streams)),
		PortForwards: r.portForwards,
	}
	for _, value := range r.streams {
		out.Streams = append(out.Streams, *value)
	}
	sort.Slice(out.Streams, func(i, j int) bool { return out.Streams[i].Name < out.Streams[j].Name })
	return out
}
