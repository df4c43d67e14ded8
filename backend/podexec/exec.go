/*
 * backend/podexec/exec.go
 *
 * One-shot command execution inside a pod container.
 * - Output is buffered and returned once the stream has fully closed.
 * - Exit codes come from structured errors; the one exception is client-go's
 *   unknown-exit-code error, which has no structured form.
 */

package podexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/utils/exec"
	"k8s.io/utils/ptr"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

const logSource = "PodExec"

// executorFactory builds the remote command executor for one exec call.
var executorFactory = newFallbackExecutor

func newFallbackExecutor(clients *cluster.Clients, namespace, pod string, opts *corev1.PodExecOptions) (remotecommand.Executor, error) {
	execReq := clients.Kubernetes.CoreV1().
		RESTClient().
		Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("exec").
		VersionedParams(opts, scheme.ParameterCodec)

	websocketExec, err := remotecommand.NewWebSocketExecutor(clients.RestConfig, http.MethodGet, execReq.URL().String())
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket executor: %w", err)
	}
	spdyExec, err := remotecommand.NewSPDYExecutor(clients.RestConfig, http.MethodPost, execReq.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create SPDY executor: %w", err)
	}
	// Older API servers and some proxies only speak SPDY.
	return remotecommand.NewFallbackExecutor(websocketExec, spdyExec, func(err error) bool {
		return httpstream.IsUpgradeFailure(err) || httpstream.IsHTTPSProxyError(err)
	})
}

// Request describes a command to run.
type Request struct {
	Namespace string   `json:"namespace"`
	Pod       string   `json:"pod"`
	Container string   `json:"container,omitempty"`
	Command   []string `json:"command"`
}

// Result is the buffered outcome of a command. ExitCode is nil when the
// process exit status could not be determined.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode *int   `json:"exitCode"`
}

// Executor runs commands in pods.
type Executor struct {
	creds     *cluster.Credentials
	logger    common.Logger
	telemetry *telemetry.Recorder
}

// NewExecutor constructs an Executor.
func NewExecutor(creds *cluster.Credentials, logger common.Logger, recorder *telemetry.Recorder) *Executor {
	if logger == nil {
		logger = common.NoopLogger{}
	}
	return &Executor{creds: creds, logger: logger, telemetry: recorder}
}

func (r Request) validate() error {
	switch {
	case r.Namespace == "":
		return apperrors.NewValidation("namespace", "namespace is required")
	case r.Pod == "":
		return apperrors.NewValidation("pod", "pod name is required")
	case len(r.Command) == 0 || r.Command[0] == "":
		return apperrors.NewValidation("command", "a command is required")
	}
	return nil
}

// Exec runs req.Command and returns once the remote stream has closed. A
// non-zero exit is a successful call with the exit code set; transport
// failures fail the call and discard any partial output.
func (e *Executor) Exec(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, config.ExecTimeout)
	defer cancel()

	started := time.Now()
	e.telemetry.RecordStreamConnect(telemetry.StreamExec)
	defer e.telemetry.RecordStreamDisconnect(telemetry.StreamExec)

	result, err := cluster.Do(ctx, e.creds, "exec in pod", func(ctx context.Context, clients *cluster.Clients) (*Result, error) {
		container, err := e.resolveContainer(ctx, clients, req)
		if err != nil {
			return nil, err
		}

		executor, err := executorFactory(clients, req.Namespace, req.Pod, &corev1.PodExecOptions{
			Container: container,
			Command:   req.Command,
			Stdout:    true,
			Stderr:    true,
		})
		if err != nil {
			return nil, err
		}

		// Fresh buffers per attempt so a retried handshake never mixes output.
		var stdout, stderr bytes.Buffer
		streamErr := executor.StreamWithContext(ctx, remotecommand.StreamOptions{
			Stdout: &stdout,
			Stderr: &stderr,
		})
		code, err := resolveExitCode(streamErr)
		if err != nil {
			return nil, err
		}
		return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
	})
	if err != nil {
		if apperrors.IsAuthExpired(err) || apperrors.IsValidation(err) || apperrors.IsNotFound(err) {
			return nil, err
		}
		wrapped := apperrors.NewTransport(fmt.Sprintf("exec in %s/%s", req.Namespace, req.Pod), err)
		e.telemetry.RecordStreamError(telemetry.StreamExec, wrapped)
		e.logger.Warn(fmt.Sprintf("Exec %q in %s/%s failed: %v", req.Command[0], req.Namespace, req.Pod, err), logSource)
		return nil, wrapped
	}

	e.telemetry.RecordStreamDelivery(telemetry.StreamExec, 1)
	exit := "unknown"
	if result.ExitCode != nil {
		exit = strconv.Itoa(*result.ExitCode)
	}
	e.logger.Debug(fmt.Sprintf("Exec %q in %s/%s finished in %s with exit code %s", req.Command[0], req.Namespace, req.Pod, time.Since(started).Round(time.Millisecond), exit), logSource)
	return result, nil
}

func (e *Executor) resolveContainer(ctx context.Context, clients *cluster.Clients, req Request) (string, error) {
	if req.Container != "" {
		return req.Container, nil
	}
	pod, err := clients.Kubernetes.CoreV1().Pods(req.Namespace).Get(ctx, req.Pod, metav1.GetOptions{})
	if err != nil {
		return "", apperrors.FromAPI("Pod", req.Namespace, req.Pod, err)
	}
	if len(pod.Spec.Containers) == 0 {
		return "", apperrors.NewValidation("container", "pod %s has no containers", req.Pod)
	}
	return pod.Spec.Containers[0].Name, nil
}

// unknownExitCodeErrors are the errors client-go's v4 error decoder returns
// for a NonZeroExitCode status whose exit code cannot be read. The decoder
// builds them with fmt.Errorf, so the message is the only signal.
var unknownExitCodeErrors = []string{
	"error stream protocol error: no ExitCode cause given",
	"error stream protocol error: details must be set",
	"error stream protocol error: invalid exit code value",
}

// resolveExitCode maps the terminal stream error to an exit code. A nil error
// is exit 0; an exit error carries its code; a non-zero exit whose code the
// server did not report yields nil. Anything else is a transport failure and
// is returned.
func resolveExitCode(err error) (*int, error) {
	if err == nil {
		return ptr.To(0), nil
	}

	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		return ptr.To(exitErr.ExitStatus()), nil
	}

	for inner := err; inner != nil; inner = errors.Unwrap(inner) {
		for _, prefix := range unknownExitCodeErrors {
			if strings.HasPrefix(inner.Error(), prefix) {
				return nil, nil
			}
		}
	}
	return nil, err
}
