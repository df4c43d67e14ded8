package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
	"github.com/luxury-yacht/dashboard/backend/internal/parallel"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/logstream"
	"github.com/luxury-yacht/dashboard/backend/podexec"
	"github.com/luxury-yacht/dashboard/backend/portforward"
	"github.com/luxury-yacht/dashboard/backend/resources"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
)

// Options configures an App.
type Options struct {
	Kubeconfig string
	Context    string
	// ForwardAddress is the interface port-forward listeners bind to.
	ForwardAddress string
	LogBuffer      int

	// Build overrides how client bundles are built; tests inject fakes here.
	Build cluster.BuildFunc
	// Dialer overrides how port-forward tunnels are opened.
	Dialer portforward.Dialer
	// WatchKubeconfig reloads the connection when the kubeconfig changes.
	WatchKubeconfig bool
}

// App wires the backend services to one cluster connection.
type App struct {
	Logger       *Logger
	Telemetry    *telemetry.Recorder
	Auth         *authstate.Manager
	Credentials  *cluster.Credentials
	Resources    *resources.Registry
	PortForwards *portforward.Manager
	Logs         *logstream.Streamer
	Exec         *podexec.Executor

	watchKubeconfig bool

	mu       sync.Mutex
	watcher  *cluster.KubeconfigWatcher
	started  bool
	shutdown bool
}

// NewApp constructs the services. Nothing talks to the cluster until Start
// or the first request.
func NewApp(opts Options) *App {
	logBuffer := opts.LogBuffer
	if logBuffer <= 0 {
		logBuffer = config.AppLogBufferSize
	}
	logger := NewLogger(logBuffer)
	recorder := telemetry.NewRecorder()

	auth := authstate.New(authstate.Config{
		OnStateChange: func(state authstate.State, reason string) {
			if reason == "" {
				logger.Info(fmt.Sprintf("Auth state changed to %s", state), "Auth")
				return
			}
			logger.Warn(fmt.Sprintf("Auth state changed to %s: %s", state, reason), "Auth")
		},
	})

	creds := cluster.New(cluster.Options{
		Source:    cluster.Source{KubeconfigPath: opts.Kubeconfig, Context: opts.Context},
		Build:     opts.Build,
		Logger:    logger,
		Auth:      auth,
		Telemetry: recorder,
	})

	return &App{
		Logger:      logger,
		Telemetry:   recorder,
		Auth:        auth,
		Credentials: creds,
		Resources: resources.NewRegistry(generic.Dependencies{
			Credentials: creds,
			Logger:      logger,
			Telemetry:   recorder,
		}),
		PortForwards: portforward.NewManager(portforward.Options{
			Credentials: creds,
			Dialer:      opts.Dialer,
			Address:     opts.ForwardAddress,
			Logger:      logger,
			Telemetry:   recorder,
		}),
		Logs:            logstream.NewStreamer(creds, logger, recorder),
		Exec:            podexec.NewExecutor(creds, logger, recorder),
		watchKubeconfig: opts.WatchKubeconfig,
	}
}

// Start connects to the cluster, warms the CRD cache and begins watching the
// kubeconfig. A cluster that cannot be reached is logged, not fatal: requests
// retry the connection on their own.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return errors.New("app has been shut down")
	}
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	src := a.Credentials.Source()
	a.Logger.Info(fmt.Sprintf("Connecting to %s", src), "App")
	if _, err := a.Credentials.Clients(ctx); err != nil {
		a.Logger.Error(fmt.Sprintf("Failed to connect to %s: %v", src, err), "App")
	} else {
		a.Resources.Prime(ctx)
	}

	if !a.watchKubeconfig {
		return nil
	}
	paths := cluster.KubeconfigPaths(src)
	watcher, err := cluster.NewKubeconfigWatcher(paths, a.Logger, a.handleKubeconfigChange)
	if err != nil {
		return fmt.Errorf("failed to watch kubeconfig: %w", err)
	}
	a.mu.Lock()
	a.watcher = watcher
	a.mu.Unlock()
	a.Logger.Debug(fmt.Sprintf("Watching kubeconfig files: %s", strings.Join(paths, ", ")), "App")
	return nil
}

// handleKubeconfigChange rebuilds the clients from the same source. The
// kubeconfig contents may now point at another cluster, so the CRD cache is
// dropped by the reload and warmed again.
func (a *App) handleKubeconfigChange(paths []string) {
	a.Logger.Info(fmt.Sprintf("Kubeconfig changed: %s", strings.Join(paths, ", ")), "App")

	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()
	if err := a.Reload(ctx, a.Credentials.Source()); err != nil {
		a.Logger.Error(fmt.Sprintf("Failed to reload kubeconfig: %v", err), "App")
	}
}

// Reload switches the connection configuration and rebuilds the clients.
func (a *App) Reload(ctx context.Context, src cluster.Source) error {
	if err := a.Credentials.Reload(ctx, src); err != nil {
		return err
	}
	a.Logger.Info(fmt.Sprintf("Reloaded connection to %s", src), "App")
	a.Resources.Prime(ctx)
	return nil
}

// Shutdown stops the kubeconfig watcher and every port-forward session.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	watcher := a.watcher
	a.watcher = nil
	a.mu.Unlock()

	a.Logger.Info("Shutting down", "App")
	return parallel.RunLimited(ctx, config.ShutdownParallelism,
		func(context.Context) error {
			if watcher != nil {
				watcher.Stop()
			}
			return nil
		},
		a.PortForwards.Shutdown,
	)
}
