package portforward

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/luxury-yacht/dashboard/backend/cluster"
)

// ErrPortInUse is wrapped by the ConflictError returned when a local port is
// already bound, by another session or by another process.
var ErrPortInUse = errors.New("local port is already in use")

// Request describes a port-forward to start. Pod names the target; when
// TargetKind is a workload or Service it is resolved to one of its ready pods.
type Request struct {
	Namespace  string `json:"namespace"`
	Pod        string `json:"pod"`
	TargetKind string `json:"targetKind,omitempty"`
	LocalPort  int    `json:"localPort"`
	TargetPort int    `json:"targetPort"`
}

// Session describes an active port-forward.
type Session struct {
	ID              string    `json:"id"`
	Namespace       string    `json:"namespace"`
	Pod             string    `json:"pod"`
	LocalPort       int       `json:"localPort"`
	TargetPort      int       `json:"targetPort"`
	StartedAt       time.Time `json:"startedAt"`
	ConnectionCount int64     `json:"connectionCount"`
}

// Tunnel is an established port-forward connection to one pod port. Each
// forwarded local connection gets its own stream pair on the tunnel.
type Tunnel interface {
	// Forward relays conn until either side closes or ctx ends.
	Forward(ctx context.Context, conn net.Conn) error
	// Done is closed when the underlying connection is gone.
	Done() <-chan struct{}
	Close() error
}

// Dialer opens tunnels. The default is SPDYDialer.
type Dialer interface {
	Dial(ctx context.Context, clients *cluster.Clients, namespace, pod string, port int) (Tunnel, error)
}
