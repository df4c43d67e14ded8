package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/luxury-yacht/dashboard/backend"
	"github.com/luxury-yacht/dashboard/backend/api"
	"github.com/luxury-yacht/dashboard/backend/config"
)

// version is replaced at build time via -ldflags.
var version = "dev"

type serveOptions struct {
	kubeconfig     string
	context        string
	listen         string
	forwardAddress string
	logBuffer      int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the cluster dashboard API",
		Long: `dashboard connects to one Kubernetes cluster through a kubeconfig context
and serves its resources, watch streams, logs, exec and port-forwards over HTTP.

The kubeconfig is watched; edits reconnect without restarting the process.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kubeconfig, "kubeconfig", "", "path to the kubeconfig file (defaults to $KUBECONFIG, then ~/.kube/config)")
	flags.StringVar(&opts.context, "context", "", "kubeconfig context to use (defaults to the current context)")
	flags.StringVar(&opts.listen, "listen", config.ListenAddress, "address the HTTP API listens on")
	flags.StringVar(&opts.forwardAddress, "forward-address", config.PortForwardAddress, "interface port-forward listeners bind to")
	flags.IntVar(&opts.logBuffer, "log-buffer", config.AppLogBufferSize, "number of application log entries kept in memory")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	flags.AddGoFlagSet(klogFlags)
	// Only -v and -vmodule are interesting on the command line.
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name != "v" && f.Name != "vmodule" && klogFlags.Lookup(f.Name) != nil {
			f.Hidden = true
		}
	})

	return cmd
}

func serve(ctx context.Context, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer klog.Flush()

	app := backend.NewApp(backend.Options{
		Kubeconfig:      opts.kubeconfig,
		Context:         opts.context,
		ForwardAddress:  opts.forwardAddress,
		LogBuffer:       opts.logBuffer,
		WatchKubeconfig: true,
	})
	if err := app.Start(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", opts.listen)
	if err != nil {
		_ = app.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", opts.listen, err)
	}

	server := &http.Server{
		Handler:           api.NewServer(app).Handler(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	app.Logger.Info(fmt.Sprintf("Serving API on http://%s", listener.Addr()), "App")

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		app.Logger.Info("Shutting down", "App")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ShutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		klog.Warningf("HTTP server shutdown: %v", shutdownErr)
	}
	if shutdownErr := app.Shutdown(shutdownCtx); shutdownErr != nil {
		klog.Warningf("app shutdown: %v", shutdownErr)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
