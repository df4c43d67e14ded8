/*
 * backend/portforward/manager.go
 *
 * Port-forward session manager.
 * - Validates requests and reserves local ports.
 * - Opens one tunnel per session and relays each local connection concurrently.
 * - Tracks sessions for listing and stopping.
 */

package portforward

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/parallel"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

const logSource = "PortForward"

// Options configures a Manager.
type Options struct {
	Credentials *cluster.Credentials
	// Dialer defaults to SPDYDialer.
	Dialer Dialer
	// Address is the local interface to bind, default config.PortForwardAddress.
	Address   string
	Logger    common.Logger
	Telemetry *telemetry.Recorder
}

// Manager owns the active port-forward sessions.
type Manager struct {
	creds     *cluster.Credentials
	dialer    Dialer
	address   string
	logger    common.Logger
	telemetry *telemetry.Recorder

	mu       sync.Mutex
	sessions map[string]*session
	// ports maps reserved local ports to the owning session id; an empty id
	// marks a reservation whose handshake is still in progress.
	ports map[int]string
}

type session struct {
	Session
	connections atomic.Int64

	ctx      context.Context
	cancel   context.CancelFunc
	listener net.Listener

	tunnelMu sync.Mutex
	tunnel   Tunnel

	manager  *Manager
	stopOnce sync.Once
}

// NewManager returns a Manager with no sessions.
func NewManager(opts Options) *Manager {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = SPDYDialer{}
	}
	address := opts.Address
	if address == "" {
		address = config.PortForwardAddress
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.NoopLogger{}
	}
	return &Manager{
		creds:     opts.Credentials,
		dialer:    dialer,
		address:   address,
		logger:    logger,
		telemetry: opts.Telemetry,
		sessions:  make(map[string]*session),
		ports:     make(map[int]string),
	}
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return apperrors.NewValidation(field, "port %d is outside the range 1-65535", port)
	}
	return nil
}

func (r Request) validate() error {
	if r.Namespace == "" {
		return apperrors.NewValidation("namespace", "namespace is required")
	}
	if r.Pod == "" {
		return apperrors.NewValidation("pod", "pod name is required")
	}
	if err := validatePort("localPort", r.LocalPort); err != nil {
		return err
	}
	if err := validatePort("targetPort", r.TargetPort); err != nil {
		return err
	}
	switch r.TargetKind {
	case "", "Pod", "Deployment", "StatefulSet", "DaemonSet", "Service":
		return nil
	default:
		return apperrors.NewValidation("targetKind", "unsupported target kind %q", r.TargetKind)
	}
}

func portConflict(port int, cause error) error {
	err := ErrPortInUse
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrPortInUse, cause)
	}
	return &apperrors.ConflictError{
		Resource: "localPort",
		Message:  fmt.Sprintf("port %d is already in use", port),
		Err:      err,
	}
}

// Start validates req, binds the local port, opens the tunnel and begins
// accepting connections. ctx bounds only the handshake.
func (m *Manager) Start(ctx context.Context, req Request) (Session, error) {
	if err := req.validate(); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	if _, taken := m.ports[req.LocalPort]; taken {
		m.mu.Unlock()
		return Session{}, portConflict(req.LocalPort, nil)
	}
	m.ports[req.LocalPort] = ""
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		if m.ports[req.LocalPort] == "" {
			delete(m.ports, req.LocalPort)
		}
		m.mu.Unlock()
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(m.address, strconv.Itoa(req.LocalPort)))
	if err != nil {
		release()
		if errors.Is(err, syscall.EADDRINUSE) {
			return Session{}, portConflict(req.LocalPort, err)
		}
		return Session{}, apperrors.NewTransport("listen on local port", err)
	}

	handshakeCtx, cancelHandshake := context.WithTimeout(ctx, config.PortForwardHandshakeTimeout)
	defer cancelHandshake()

	podName := req.Pod
	if req.TargetKind != "" && req.TargetKind != "Pod" {
		podName, err = cluster.Do(handshakeCtx, m.creds, "resolve port-forward target", func(ctx context.Context, clients *cluster.Clients) (string, error) {
			return ResolvePod(ctx, clients.Kubernetes, req.Namespace, req.TargetKind, req.Pod)
		})
		if err != nil {
			listener.Close()
			release()
			return Session{}, err
		}
	}

	tunnel, err := m.dial(handshakeCtx, req.Namespace, podName, req.TargetPort)
	if err != nil {
		listener.Close()
		release()
		m.logger.Error(fmt.Sprintf("Port-forward handshake to %s/%s:%d failed: %v", req.Namespace, podName, req.TargetPort, err), logSource)
		return Session{}, err
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		Session: Session{
			ID:         uuid.NewString(),
			Namespace:  req.Namespace,
			Pod:        podName,
			LocalPort:  req.LocalPort,
			TargetPort: req.TargetPort,
			StartedAt:  time.Now(),
		},
		ctx:      sessionCtx,
		cancel:   cancel,
		listener: listener,
		tunnel:   tunnel,
		manager:  m,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.ports[req.LocalPort] = s.ID
	m.mu.Unlock()

	m.telemetry.RecordPortForwardStart()
	m.logger.Info(fmt.Sprintf("Port-forward %s started: %s:%d -> %s/%s:%d", s.ID, m.address, req.LocalPort, req.Namespace, podName, req.TargetPort), logSource)

	go s.acceptLoop()
	return s.snapshot(), nil
}

func (m *Manager) dial(ctx context.Context, namespace, pod string, port int) (Tunnel, error) {
	tunnel, err := cluster.Do(ctx, m.creds, "port-forward handshake", func(ctx context.Context, clients *cluster.Clients) (Tunnel, error) {
		return m.dialer.Dial(ctx, clients, namespace, pod, port)
	})
	if err != nil {
		if apperrors.IsAuthExpired(err) || apperrors.IsValidation(err) {
			return nil, err
		}
		return nil, apperrors.NewTransport(fmt.Sprintf("port-forward to %s/%s", namespace, pod), err)
	}
	return tunnel, nil
}

// List returns the active sessions ordered by start time.
func (m *Manager) List() []Session {
	m.mu.Lock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshot())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// Stop ends the session. It reports whether a session with that id was active.
func (m *Manager) Stop(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		if m.ports[s.LocalPort] == id {
			delete(m.ports, s.LocalPort)
		}
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	s.stop()
	m.telemetry.RecordPortForwardStop()
	m.logger.Info(fmt.Sprintf("Port-forward %s stopped after %d connection(s)", id, s.connections.Load()), logSource)
	return true
}

// Shutdown stops every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	return parallel.ForEach(ctx, ids, config.ShutdownParallelism, func(_ context.Context, id string) error {
		m.Stop(id)
		return nil
	})
}

func (s *session) snapshot() Session {
	out := s.Session
	out.ConnectionCount = s.connections.Load()
	return out
}

func (s *session) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.listener.Close()
		s.tunnelMu.Lock()
		if s.tunnel != nil {
			s.tunnel.Close()
		}
		s.tunnelMu.Unlock()
	})
}

func (s *session) acceptLoop() {
	m := s.manager
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			m.logger.Warn(fmt.Sprintf("Port-forward %s accept failed: %v", s.ID, err), logSource)
			continue
		}
		s.connections.Add(1)
		m.telemetry.RecordPortForwardConnection(nil)
		go s.handleConnection(conn)
	}
}

func (s *session) handleConnection(conn net.Conn) {
	defer conn.Close()
	m := s.manager

	tunnel, err := s.currentTunnel()
	if err == nil {
		err = tunnel.Forward(s.ctx, conn)
	}
	if err != nil && s.ctx.Err() == nil {
		m.telemetry.RecordPortForwardConnection(err)
		m.logger.Warn(fmt.Sprintf("Port-forward %s connection from %s failed: %v", s.ID, conn.RemoteAddr(), err), logSource)
	}
}

// currentTunnel returns the live tunnel, re-dialling if the previous one died.
func (s *session) currentTunnel() (Tunnel, error) {
	s.tunnelMu.Lock()
	defer s.tunnelMu.Unlock()

	if s.tunnel != nil {
		select {
		case <-s.tunnel.Done():
			s.tunnel.Close()
			s.tunnel = nil
		default:
			return s.tunnel, nil
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, config.PortForwardHandshakeTimeout)
	defer cancel()
	s.manager.logger.Info(fmt.Sprintf("Port-forward %s tunnel closed, reconnecting to %s/%s", s.ID, s.Namespace, s.Pod), logSource)
	tunnel, err := s.manager.dial(ctx, s.Namespace, s.Pod, s.TargetPort)
	if err != nil {
		return nil, err
	}
	s.tunnel = tunnel
	return tunnel, nil
}

// TargetPorts lists the container ports a pod declares, for pre-filling a
// port-forward request.
func (m *Manager) TargetPorts(ctx context.Context, namespace, pod string) ([]ContainerPort, error) {
	if namespace == "" || pod == "" {
		return nil, apperrors.NewValidation("pod", "namespace and pod are required")
	}
	return cluster.Do(ctx, m.creds, "list container ports", func(ctx context.Context, clients *cluster.Clients) ([]ContainerPort, error) {
		return ContainerPorts(ctx, clients.Kubernetes, namespace, pod)
	})
}
