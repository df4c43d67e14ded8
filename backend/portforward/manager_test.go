package portforward

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
)

// echoServer stands in for the pod: every connection echoes lines back.
func echoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()
	return ln.Addr().String()
}

type fakeTunnel struct {
	target  string
	failNth int64
	calls   atomic.Int64
	done    chan struct{}
	closed  atomic.Bool
}

func newFakeTunnel(target string) *fakeTunnel {
	return &fakeTunnel{target: target, done: make(chan struct{})}
}

func (f *fakeTunnel) Forward(ctx context.Context, conn net.Conn) error {
	n := f.calls.Add(1)
	if n == f.failNth {
		return errors.New("stream reset by remote")
	}
	remote, err := net.Dial("tcp", f.target)
	if err != nil {
		return err
	}
	defer remote.Close()
	done := make(chan struct{}, 2)
	go func() { _, _ = io.Copy(remote, conn); done <- struct{}{} }()
	go func() { _, _ = io.Copy(conn, remote); done <- struct{}{} }()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func (f *fakeTunnel) Done() <-chan struct{} { return f.done }

func (f *fakeTunnel) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	tunnels []*fakeTunnel
	next    func() (*fakeTunnel, error)
}

func (d *fakeDialer) Dial(_ context.Context, _ *cluster.Clients, _, _ string, _ int) (Tunnel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	t, err := d.next()
	if err != nil {
		return nil, err
	}
	d.tunnels = append(d.tunnels, t)
	return t, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func newTestManager(t *testing.T, dialer Dialer) (*Manager, *telemetry.Recorder) {
	t.Helper()
	rec := telemetry.NewRecorder()
	creds := cluster.New(cluster.Options{
		Build: func(context.Context, cluster.Source, *authstate.Manager) (*cluster.Clients, error) {
			return &cluster.Clients{Kubernetes: fake.NewClientset()}, nil
		},
	})
	m := NewManager(Options{Credentials: creds, Dialer: dialer, Telemetry: rec})
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, rec
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func roundTrip(t *testing.T, port int, message string) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Write([]byte(message + "\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, message+"\n", line)
}

func TestStartValidatesBeforeDialing(t *testing.T) {
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(""), nil }}
	m, _ := newTestManager(t, dialer)

	cases := []struct {
		req   Request
		field string
	}{
		{Request{Namespace: "default", Pod: "web", LocalPort: 0, TargetPort: 80}, "localPort"},
		{Request{Namespace: "default", Pod: "web", LocalPort: 65536, TargetPort: 80}, "localPort"},
		{Request{Namespace: "default", Pod: "web", LocalPort: 8080, TargetPort: 70000}, "targetPort"},
		{Request{Namespace: "default", Pod: "web", LocalPort: 8080, TargetPort: -1}, "targetPort"},
		{Request{Pod: "web", LocalPort: 8080, TargetPort: 80}, "namespace"},
		{Request{Namespace: "default", LocalPort: 8080, TargetPort: 80}, "pod"},
		{Request{Namespace: "default", Pod: "web", TargetKind: "CronJob", LocalPort: 8080, TargetPort: 80}, "targetKind"},
	}
	for _, tc := range cases {
		_, err := m.Start(context.Background(), tc.req)
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, tc.field, verr.Field)
	}
	require.Zero(t, dialer.dialCount())
	require.Empty(t, m.List())
}

func TestStartRelaysConnectionsAndCounts(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, rec := newTestManager(t, dialer)
	port := freePort(t)

	session, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "web-0", LocalPort: port, TargetPort: 8080})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, port, session.LocalPort)
	require.Equal(t, 8080, session.TargetPort)
	require.Zero(t, session.ConnectionCount)
	require.False(t, session.StartedAt.IsZero())

	roundTrip(t, port, "hello")
	roundTrip(t, port, "again")

	require.Eventually(t, func() bool {
		got, ok := m.Get(session.ID)
		return ok && got.ConnectionCount == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, dialer.dialCount(), "connections share one tunnel")
	require.Eventually(t, func() bool {
		return rec.SnapshotSummary().PortForwards.Connections == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConcurrentConnectionsAreRelayedIndependently(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, _ := newTestManager(t, dialer)
	port := freePort(t)

	_, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "web-0", LocalPort: port, TargetPort: 8080})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roundTrip(t, port, "conn-"+strconv.Itoa(i))
		}(i)
	}
	wg.Wait()
	require.Eventually(t, func() bool { return m.List()[0].ConnectionCount == 5 }, 5*time.Second, 10*time.Millisecond)
}

func TestFailingConnectionDoesNotEndSession(t *testing.T) {
	target := echoServer(t)
	tunnel := newFakeTunnel(target)
	tunnel.failNth = 1
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return tunnel, nil }}
	m, rec := newTestManager(t, dialer)
	port := freePort(t)

	session, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "web-0", LocalPort: port, TargetPort: 8080})
	require.NoError(t, err)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	require.Error(t, err, "the failed relay closes its own connection")
	conn.Close()

	roundTrip(t, port, "still alive")

	_, ok := m.Get(session.ID)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return rec.SnapshotSummary().PortForwards.RelayErrors == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartRejectsPortHeldBySession(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, _ := newTestManager(t, dialer)
	port := freePort(t)

	first, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.NoError(t, err)

	_, err = m.Start(context.Background(), Request{Namespace: "default", Pod: "b", LocalPort: port, TargetPort: 81})
	require.True(t, apperrors.IsConflict(err))
	require.ErrorIs(t, err, ErrPortInUse)
	require.Len(t, m.List(), 1)
	require.Equal(t, first.ID, m.List()[0].ID)

	// The rejected start leaves the first session forwarding.
	roundTrip(t, port, "still forwarding")
	require.Eventually(t, func() bool {
		got, ok := m.Get(first.ID)
		return ok && got.ConnectionCount == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, dialer.dialCount())
}

func TestStartMapsAddressInUse(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(""), nil }}
	m, _ := newTestManager(t, dialer)

	_, err = m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.True(t, apperrors.IsConflict(err))
	require.ErrorIs(t, err, ErrPortInUse)
	require.ErrorIs(t, err, syscall.EADDRINUSE)
	require.Zero(t, dialer.dialCount())

	// The failed attempt must not leave the port reserved.
	occupied.Close()
	_, err = m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.NoError(t, err)
}

func TestHandshakeFailureReleasesPort(t *testing.T) {
	target := echoServer(t)
	fail := true
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) {
		if fail {
			return nil, errors.New("pod not running")
		}
		return newFakeTunnel(target), nil
	}}
	m, _ := newTestManager(t, dialer)
	port := freePort(t)

	_, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.True(t, apperrors.IsTransport(err))
	require.Empty(t, m.List())

	fail = false
	_, err = m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.NoError(t, err)
}

func TestStopIsIdempotentAndFreesPort(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, rec := newTestManager(t, dialer)
	port := freePort(t)

	session, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.NoError(t, err)

	require.True(t, m.Stop(session.ID))
	require.False(t, m.Stop(session.ID))
	require.False(t, m.Stop("does-not-exist"))
	require.Empty(t, m.List())
	require.True(t, dialer.tunnels[0].closed.Load())

	_, err = net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	require.Error(t, err, "listener is closed")

	_, err = m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.NoError(t, err)
	stats := rec.SnapshotSummary().PortForwards
	require.Equal(t, uint64(2), stats.Started)
	require.Equal(t, uint64(1), stats.Stopped)
}

func TestListIsOrderedByStartTime(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, _ := newTestManager(t, dialer)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "p", LocalPort: freePort(t), TargetPort: 80})
		require.NoError(t, err)
		ids = append(ids, s.ID)
		time.Sleep(2 * time.Millisecond)
	}

	list := m.List()
	require.Len(t, list, 3)
	for i, s := range list {
		require.Equal(t, ids[i], s.ID)
	}
}

func TestDeadTunnelIsRedialledLazily(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, _ := newTestManager(t, dialer)
	port := freePort(t)

	_, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "a", LocalPort: port, TargetPort: 80})
	require.NoError(t, err)
	require.Equal(t, 1, dialer.dialCount())

	close(dialer.tunnels[0].done)
	roundTrip(t, port, "after reconnect")
	require.Equal(t, 2, dialer.dialCount())
}

func TestShutdownStopsAllSessions(t *testing.T) {
	target := echoServer(t)
	dialer := &fakeDialer{next: func() (*fakeTunnel, error) { return newFakeTunnel(target), nil }}
	m, _ := newTestManager(t, dialer)

	for i := 0; i < 3; i++ {
		_, err := m.Start(context.Background(), Request{Namespace: "default", Pod: "p", LocalPort: freePort(t), TargetPort: 80})
		require.NoError(t, err)
	}
	require.NoError(t, m.Shutdown(context.Background()))
	require.Empty(t, m.List())
}
