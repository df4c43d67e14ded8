package portforward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"

	"github.com/luxury-yacht/dashboard/backend/cluster"
)

// SPDYDialer opens port-forward tunnels through the pod portforward subresource.
type SPDYDialer struct{}

func (SPDYDialer) Dial(ctx context.Context, clients *cluster.Clients, namespace, pod string, port int) (Tunnel, error) {
	podURL := clients.Kubernetes.CoreV1().
		RESTClient().
		Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("portforward").
		URL()

	transport, upgrader, err := spdy.RoundTripperFor(clients.RestConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create SPDY transport: %w", err)
	}
	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, podURL)

	type dialResult struct {
		conn httpstream.Connection
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, _, err := dialer.Dial(portforward.PortForwardProtocolV1Name)
		resultCh <- dialResult{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		// Close the connection if the handshake completes after we gave up.
		go func() {
			if res := <-resultCh; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("error upgrading connection: %w", res.err)
		}
		return &spdyTunnel{conn: res.conn, port: port}, nil
	}
}

type spdyTunnel struct {
	conn      httpstream.Connection
	port      int
	requestID atomic.Int64

	doneOnce sync.Once
	done     chan struct{}
}

func (t *spdyTunnel) Done() <-chan struct{} {
	t.doneOnce.Do(func() {
		t.done = make(chan struct{})
		go func() {
			<-t.conn.CloseChan()
			close(t.done)
		}()
	})
	return t.done
}

func (t *spdyTunnel) Close() error {
	return t.conn.Close()
}

func (t *spdyTunnel) Forward(ctx context.Context, conn net.Conn) error {
	requestID := t.requestID.Add(1)

	headers := http.Header{}
	headers.Set(corev1.StreamType, corev1.StreamTypeError)
	headers.Set(corev1.PortHeader, strconv.Itoa(t.port))
	headers.Set(corev1.PortForwardRequestIDHeader, strconv.FormatInt(requestID, 10))
	errorStream, err := t.conn.CreateStream(headers)
	if err != nil {
		return fmt.Errorf("error creating error stream for port %d: %w", t.port, err)
	}
	// The error stream is read-only from our side.
	errorStream.Close()

	remoteErr := make(chan error, 1)
	go func() {
		message, err := io.ReadAll(errorStream)
		switch {
		case err != nil:
			remoteErr <- fmt.Errorf("error reading from error stream for port %d: %w", t.port, err)
		case len(message) > 0:
			remoteErr <- fmt.Errorf("error forwarding port %d to pod: %s", t.port, string(message))
		}
		close(remoteErr)
	}()

	headers.Set(corev1.StreamType, corev1.StreamTypeData)
	dataStream, err := t.conn.CreateStream(headers)
	if err != nil {
		t.conn.RemoveStreams(errorStream)
		return fmt.Errorf("error creating forwarding stream for port %d: %w", t.port, err)
	}
	defer t.conn.RemoveStreams(dataStream, errorStream)

	localErr := make(chan error, 1)
	remoteDone := make(chan struct{})
	go func() {
		// Remote to local. Ignore the error; the remote side may close first.
		_, _ = io.Copy(conn, dataStream)
		close(remoteDone)
	}()
	go func() {
		// Closing the data stream tells the server we are done writing.
		defer dataStream.Close()
		if _, err := io.Copy(dataStream, conn); err != nil && !isClosedConnError(err) {
			localErr <- fmt.Errorf("error copying from local connection to remote stream: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-remoteDone:
	case err := <-localErr:
		return err
	}
	return <-remoteErr
}

func isClosedConnError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
