/*
 * backend/logstream/streamer.go
 *
 * Pod log streaming.
 * - Opens the log stream through the auth retry wrapper.
 * - Relays raw chunks as they arrive and reports read failures in-band.
 * - Tears down once, either on request or when the caller's context ends.
 */

package logstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/utils/ptr"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

const logSource = "LogStream"

var logStreamFunc = func(ctx context.Context, pods corev1client.PodInterface, podName string, opts *corev1.PodLogOptions) (io.ReadCloser, error) {
	return pods.GetLogs(podName, opts).Stream(ctx)
}

// Streamer opens pod log streams.
type Streamer struct {
	creds     *cluster.Credentials
	logger    common.Logger
	telemetry *telemetry.Recorder
}

// NewStreamer constructs a Streamer.
func NewStreamer(creds *cluster.Credentials, logger common.Logger, recorder *telemetry.Recorder) *Streamer {
	if logger == nil {
		logger = common.NoopLogger{}
	}
	return &Streamer{creds: creds, logger: logger, telemetry: recorder}
}

// ErrorChunk renders a read failure the way it appears inside the stream.
func ErrorChunk(err error) []byte {
	return []byte(fmt.Sprintf("\n[stream error: %v]\n", err))
}

func (o Options) podLogOptions(container string) *corev1.PodLogOptions {
	return &corev1.PodLogOptions{
		Container:    container,
		Follow:       o.FollowEnabled(),
		TailLines:    ptr.To(o.EffectiveTailLines()),
		Previous:     o.Previous,
		Timestamps:   o.Timestamps,
		SinceSeconds: o.SinceSeconds,
	}
}

// Stream opens the log stream for target and relays chunks to onChunk from a
// single goroutine. Read failures are delivered as an ErrorChunk and then to
// onError. The returned teardown is idempotent and also runs when ctx ends.
func (s *Streamer) Stream(ctx context.Context, target Target, opts Options, onChunk func([]byte), onError func(error)) (func(), error) {
	return s.open(ctx, target, opts, onChunk, onError, nil)
}

// Copy writes the log stream for target into w and blocks until the stream
// ends, ctx is done or a write fails. flush, when set, runs after every chunk.
// Read failures are written in-band and returned.
func (s *Streamer) Copy(ctx context.Context, target Target, opts Options, w io.Writer, flush func()) error {
	copyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		streamErr error
		writeErr  error
	)
	done := make(chan struct{})
	_, err := s.open(copyCtx, target, opts, func(chunk []byte) {
		if writeErr != nil {
			return
		}
		if _, writeErr = w.Write(chunk); writeErr != nil {
			cancel()
			return
		}
		if flush != nil {
			flush()
		}
	}, func(err error) {
		streamErr = err
	}, func() {
		close(done)
	})
	if err != nil {
		return err
	}
	<-done
	if streamErr != nil {
		return streamErr
	}
	return writeErr
}

func (s *Streamer) open(ctx context.Context, target Target, opts Options, onChunk func([]byte), onError func(error), onDone func()) (func(), error) {
	if target.Namespace == "" {
		return nil, apperrors.NewValidation("namespace", "namespace is required")
	}
	if target.Pod == "" {
		return nil, apperrors.NewValidation("pod", "pod name is required")
	}
	if onChunk == nil {
		return nil, apperrors.NewValidation("onChunk", "a chunk callback is required")
	}
	if onError == nil {
		onError = func(error) {}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	body, err := cluster.Do(streamCtx, s.creds, "open log stream", func(ctx context.Context, clients *cluster.Clients) (io.ReadCloser, error) {
		return logStreamFunc(ctx, clients.Kubernetes.CoreV1().Pods(target.Namespace), target.Pod, opts.podLogOptions(target.Container))
	})
	if err != nil {
		cancel()
		if apperrors.IsAuthExpired(err) {
			return nil, err
		}
		if translated := apperrors.FromAPI("Pod", target.Namespace, target.Pod, err); translated != err {
			return nil, translated
		}
		return nil, apperrors.NewTransport("open log stream", err)
	}

	var (
		stopped  atomic.Bool
		once     sync.Once
		stopHook func() bool
		hookMu   sync.Mutex
	)
	teardown := func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
			_ = body.Close()
			hookMu.Lock()
			if stopHook != nil {
				stopHook()
			}
			hookMu.Unlock()
			s.telemetry.RecordStreamDisconnect(telemetry.StreamLogs)
			s.logger.Debug(fmt.Sprintf("Log stream for %s/%s closed", target.Namespace, target.Pod), logSource)
		})
	}
	hookMu.Lock()
	stopHook = context.AfterFunc(ctx, teardown)
	hookMu.Unlock()

	s.telemetry.RecordStreamConnect(telemetry.StreamLogs)
	s.logger.Debug(fmt.Sprintf("Log stream for %s/%s opened (follow=%t, tail=%d)", target.Namespace, target.Pod, opts.FollowEnabled(), opts.EffectiveTailLines()), logSource)

	go func() {
		s.relay(streamCtx, body, &stopped, teardown, onChunk, onError)
		if onDone != nil {
			onDone()
		}
	}()
	return teardown, nil
}

func (s *Streamer) relay(ctx context.Context, body io.Reader, stopped *atomic.Bool, teardown func(), onChunk func([]byte), onError func(error)) {
	defer teardown()

	buf := make([]byte, config.LogStreamChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if stopped.Load() {
				return
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
			s.telemetry.RecordStreamDelivery(telemetry.StreamLogs, 1)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil || stopped.Load() {
			return
		}
		streamErr := apperrors.NewTransport("read log stream", err)
		s.logger.Warn(fmt.Sprintf("Log stream read failed: %v", err), logSource)
		s.telemetry.RecordStreamError(telemetry.StreamLogs, streamErr)
		onChunk(ErrorChunk(err))
		onError(streamErr)
		return
	}
}

// Container describes one container of a pod.
type Container struct {
	Name string `json:"name"`
	Init bool   `json:"init,omitempty"`
}

// Containers lists the init and regular containers of a pod.
func (s *Streamer) Containers(ctx context.Context, namespace, pod string) ([]Container, error) {
	if namespace == "" || pod == "" {
		return nil, apperrors.NewValidation("pod", "namespace and pod are required")
	}
	obj, err := cluster.Do(ctx, s.creds, "get pod containers", func(ctx context.Context, clients *cluster.Clients) (*corev1.Pod, error) {
		return clients.Kubernetes.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	})
	if err != nil {
		return nil, apperrors.FromAPI("Pod", namespace, pod, err)
	}

	containers := make([]Container, 0, len(obj.Spec.InitContainers)+len(obj.Spec.Containers))
	for _, c := range obj.Spec.InitContainers {
		containers = append(containers, Container{Name: c.Name, Init: true})
	}
	for _, c := range obj.Spec.Containers {
		containers = append(containers, Container{Name: c.Name})
	}
	return containers, nil
}
