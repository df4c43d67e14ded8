/*
 * backend/config/config.go
 *
 * Timing and sizing settings shared by the cluster access, session and HTTP layers.
 */

package config

import "time"

// Timing knobs used across the backend.
const (
	// ClientQPS and ClientBurst are applied to every rest.Config we build. The dashboard
	// issues bursts of list calls when a view opens, so the client-go defaults are too low.
	ClientQPS   = 500
	ClientBurst = 1000

	// RequestTimeout bounds request/response calls made through the resource services.
	RequestTimeout = 30 * time.Second

	// CRDLookupTimeout bounds the apiextensions GET used to populate the CRD existence cache.
	CRDLookupTimeout = 5 * time.Second

	// PortForwardHandshakeTimeout bounds the SPDY upgrade for a new port-forward tunnel.
	PortForwardHandshakeTimeout = 15 * time.Second

	// PortForwardAddress is the default interface local listeners bind to.
	PortForwardAddress = "127.0.0.1"

	// LogStreamDefaultTailLines is the number of trailing lines fetched when the caller
	// does not ask for a specific amount.
	LogStreamDefaultTailLines int64 = 200

	// LogStreamChunkSize is the read buffer used when relaying log chunks.
	LogStreamChunkSize = 32 * 1024

	// ExecTimeout bounds one-shot exec calls.
	ExecTimeout = 2 * time.Minute

	// StreamWriteTimeout bounds websocket writes for resource streams.
	StreamWriteTimeout = 10 * time.Second

	// StreamHandshakeTimeout bounds websocket upgrade handshakes.
	StreamHandshakeTimeout = 45 * time.Second

	// StreamReadBufferSize configures websocket read buffer sizing.
	StreamReadBufferSize = 4096

	// StreamWriteBufferSize configures websocket write buffer sizing.
	StreamWriteBufferSize = 4096

	// StreamEnqueueTimeout is how long a watch relay waits on a full outgoing
	// buffer before the websocket is closed as too slow.
	StreamEnqueueTimeout = 10 * time.Second

	// StreamOutgoingBufferSize caps queued outbound envelopes per websocket.
	StreamOutgoingBufferSize = 512

	// KubeconfigDebounce coalesces bursts of file-system events on the kubeconfig.
	KubeconfigDebounce = 500 * time.Millisecond

	// ListenAddress is the default address the HTTP API binds to.
	ListenAddress = "127.0.0.1:8765"

	// ReadHeaderTimeout bounds how long the HTTP server waits for request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout = 10 * time.Second

	// ShutdownParallelism limits concurrent teardown tasks during shutdown.
	ShutdownParallelism = 4

	// CRDPrimeParallelism limits concurrent CRD lookups when warming the cache at startup.
	CRDPrimeParallelism = 4

	// AppLogBufferSize is the default number of in-memory application log entries kept.
	AppLogBufferSize = 1000
)
