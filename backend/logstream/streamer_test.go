package logstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/utils/ptr"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/testsupport"
)

type trackedBody struct {
	*io.PipeReader
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return b.PipeReader.Close()
}

type fakeLogs struct {
	mu     sync.Mutex
	opts   []*corev1.PodLogOptions
	failN  int
	body   *trackedBody
	writer *io.PipeWriter
}

func installFakeLogs(t *testing.T, f *fakeLogs) {
	t.Helper()
	pr, pw := io.Pipe()
	f.body = &trackedBody{PipeReader: pr}
	f.writer = pw
	original := logStreamFunc
	logStreamFunc = func(_ context.Context, _ corev1client.PodInterface, _ string, opts *corev1.PodLogOptions) (io.ReadCloser, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.opts = append(f.opts, opts)
		if f.failN > 0 {
			f.failN--
			return nil, apierrors.NewUnauthorized("token expired")
		}
		return f.body, nil
	}
	t.Cleanup(func() {
		logStreamFunc = original
		pw.Close()
	})
}

type collector struct {
	mu     sync.Mutex
	chunks []string
	errs   []error
}

func (c *collector) chunk(b []byte) {
	c.mu.Lock()
	c.chunks = append(c.chunks, string(b))
	c.mu.Unlock()
}

func (c *collector) err(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func (c *collector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func (c *collector) errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

func newTestStreamer(t *testing.T) (*Streamer, *testsupport.Cluster) {
	fc := testsupport.NewCluster(t)
	return NewStreamer(fc.Credentials, fc.Logger, fc.Telemetry), fc
}

func TestStreamAppliesDefaults(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	teardown, err := streamer.Stream(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, func([]byte) {}, nil)
	require.NoError(t, err)
	defer teardown()

	require.Len(t, logs.opts, 1)
	require.True(t, logs.opts[0].Follow)
	require.Equal(t, int64(200), *logs.opts[0].TailLines)
	require.False(t, logs.opts[0].Previous)
}

func TestStreamHonoursExplicitOptions(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	opts := Options{Follow: ptr.To(false), TailLines: ptr.To[int64](10), Previous: true}
	teardown, err := streamer.Stream(context.Background(), Target{Namespace: "default", Pod: "web", Container: "app"}, opts, func([]byte) {}, nil)
	require.NoError(t, err)
	defer teardown()

	got := logs.opts[0]
	require.False(t, got.Follow)
	require.Equal(t, int64(10), *got.TailLines)
	require.True(t, got.Previous)
	require.Equal(t, "app", got.Container)
}

func TestStreamRelaysChunksUntilEOF(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, fc := newTestStreamer(t)

	out := &collector{}
	_, err := streamer.Stream(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, out.chunk, out.err)
	require.NoError(t, err)

	_, err = logs.writer.Write([]byte("line one\n"))
	require.NoError(t, err)
	_, err = logs.writer.Write([]byte("line two\n"))
	require.NoError(t, err)
	require.NoError(t, logs.writer.Close())

	require.Eventually(t, logs.body.closed.Load, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "line one\nline two\n", out.text())
	require.Empty(t, out.errors())

	require.Eventually(t, func() bool {
		for _, s := range fc.Telemetry.SnapshotSummary().Streams {
			if s.Name == telemetry.StreamLogs {
				return s.ActiveSessions == 0 && s.TotalMessages == 2
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStreamReportsReadErrorsInBand(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	out := &collector{}
	_, err := streamer.Stream(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, out.chunk, out.err)
	require.NoError(t, err)

	_, err = logs.writer.Write([]byte("partial\n"))
	require.NoError(t, err)
	logs.writer.CloseWithError(errors.New("connection reset by peer"))

	require.Eventually(t, func() bool { return len(out.errors()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, apperrors.IsTransport(out.errors()[0]))
	require.Equal(t, "partial\n\n[stream error: connection reset by peer]\n", out.text())
}

func TestTeardownIsIdempotentAndSilent(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	out := &collector{}
	teardown, err := streamer.Stream(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, out.chunk, out.err)
	require.NoError(t, err)

	teardown()
	teardown()
	require.True(t, logs.body.closed.Load())

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, out.errors(), "closing the stream is not an error")
	require.Empty(t, out.text())
}

func TestCallerCancellationTearsDown(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	ctx, cancel := context.WithCancel(context.Background())
	out := &collector{}
	_, err := streamer.Stream(ctx, Target{Namespace: "default", Pod: "web"}, Options{}, out.chunk, out.err)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, logs.body.closed.Load, 2*time.Second, 5*time.Millisecond)
	require.Empty(t, out.errors())
}

func TestStreamRetriesOpenAfterAuthFailure(t *testing.T) {
	logs := &fakeLogs{failN: 1}
	installFakeLogs(t, logs)
	streamer, fc := newTestStreamer(t)

	teardown, err := streamer.Stream(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, func([]byte) {}, nil)
	require.NoError(t, err)
	defer teardown()

	require.Len(t, logs.opts, 2)
	require.Equal(t, 2, fc.Builds())
}

func TestStreamValidatesTarget(t *testing.T) {
	streamer, _ := newTestStreamer(t)
	_, err := streamer.Stream(context.Background(), Target{Namespace: "default"}, Options{}, func([]byte) {}, nil)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "pod", verr.Field)
}

func TestContainersListsInitFirst(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec: corev1.PodSpec{
			InitContainers: []corev1.Container{{Name: "migrate"}},
			Containers:     []corev1.Container{{Name: "app"}, {Name: "proxy"}},
		},
	}
	fc := testsupport.NewCluster(t, testsupport.WithKubeObjects(pod))
	streamer := NewStreamer(fc.Credentials, nil, nil)

	containers, err := streamer.Containers(context.Background(), "default", "web")
	require.NoError(t, err)
	require.Equal(t, []Container{{Name: "migrate", Init: true}, {Name: "app"}, {Name: "proxy"}}, containers)

	_, err = streamer.Containers(context.Background(), "default", "missing")
	require.True(t, apperrors.IsNotFound(err))
}

func TestCopyBlocksUntilStreamEnds(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	go func() {
		_, _ = logs.writer.Write([]byte("one\n"))
		_, _ = logs.writer.Write([]byte("two\n"))
		_ = logs.writer.Close()
	}()

	var buf strings.Builder
	flushes := 0
	err := streamer.Copy(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, &buf, func() { flushes++ })
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", buf.String())
	require.Equal(t, 2, flushes)
	require.True(t, logs.body.closed.Load())
}

func TestCopyReturnsReadFailure(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	go func() {
		_ = logs.writer.CloseWithError(errors.New("connection reset by peer"))
	}()

	var buf strings.Builder
	err := streamer.Copy(context.Background(), Target{Namespace: "default", Pod: "web"}, Options{}, &buf, nil)
	require.True(t, apperrors.IsTransport(err))
	require.Contains(t, buf.String(), "[stream error: connection reset by peer]")
}

func TestCopyStopsWhenContextEnds(t *testing.T) {
	logs := &fakeLogs{}
	installFakeLogs(t, logs)
	streamer, _ := newTestStreamer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- streamer.Copy(ctx, Target{Namespace: "default", Pod: "web"}, Options{}, io.Discard, nil)
	}()

	require.Eventually(t, func() bool {
		logs.mu.Lock()
		defer logs.mu.Unlock()
		return len(logs.opts) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Copy did not return after cancellation")
	}
	require.True(t, logs.body.closed.Load())
}
