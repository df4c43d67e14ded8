package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
	"github.com/luxury-yacht/dashboard/backend/testsupport"
)

func newTestApp(t *testing.T, opts Options, clusterOpts ...testsupport.ClusterOption) (*App, *testsupport.Cluster) {
	t.Helper()
	fc := testsupport.NewCluster(t, clusterOpts...)
	if opts.Build == nil {
		opts.Build = fc.Build
	}
	app := NewApp(opts)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app, fc
}

func TestStartConnectsAndPrimesCRDs(t *testing.T) {
	app, fc := newTestApp(t, Options{Kubeconfig: "/tmp/dashboard-kubeconfig", Context: "prod"},
		testsupport.WithCRDs(testsupport.CRDFixture("nodepools.karpenter.sh", "NodePool", testsupport.CRDClusterScoped())),
	)

	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Start(context.Background()))
	require.Equal(t, 1, fc.Builds())
	require.Len(t, fc.APIExtensions.Actions(), 3)

	logs := app.Logger.GetEntries()
	require.NotEmpty(t, logs)
	require.Equal(t, "Connecting to /tmp/dashboard-kubeconfig:prod", logs[0].Message)

	exists, err := app.Credentials.CRDExists(context.Background(), "nodepools.karpenter.sh")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestStartToleratesUnreachableCluster(t *testing.T) {
	app, _ := newTestApp(t, Options{
		Build: func(context.Context, cluster.Source, *authstate.Manager) (*cluster.Clients, error) {
			return nil, errors.New("no route to host")
		},
	})

	require.NoError(t, app.Start(context.Background()))
	found := false
	for _, entry := range app.Logger.GetEntries() {
		if entry.Level == "ERROR" && entry.Source == "App" {
			require.Contains(t, entry.Message, "no route to host")
			found = true
		}
	}
	require.True(t, found)
}

func TestReloadSwitchesSource(t *testing.T) {
	app, fc := newTestApp(t, Options{Kubeconfig: "/tmp/a", Context: "one"})
	require.NoError(t, app.Start(context.Background()))

	require.NoError(t, app.Reload(context.Background(), cluster.Source{KubeconfigPath: "/tmp/b", Context: "two"}))
	require.Equal(t, cluster.Source{KubeconfigPath: "/tmp/b", Context: "two"}, app.Credentials.Source())
	require.Equal(t, 2, fc.Builds())
}

func TestKubeconfigChangeReloadsClients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("apiVersion: v1\nkind: Config\n"), 0o600))

	app, fc := newTestApp(t, Options{Kubeconfig: path, WatchKubeconfig: true})
	require.NoError(t, app.Start(context.Background()))
	require.Equal(t, 1, fc.Builds())

	require.NoError(t, os.WriteFile(path, []byte("apiVersion: v1\nkind: Config\ncurrent-context: other\n"), 0o600))
	require.Eventually(t, func() bool { return fc.Builds() == 2 }, 5*time.Second, 20*time.Millisecond)
}

func TestShutdownIsIdempotentAndFinal(t *testing.T) {
	app, _ := newTestApp(t, Options{})

	require.NoError(t, app.Shutdown(context.Background()))
	require.NoError(t, app.Shutdown(context.Background()))
	require.ErrorContains(t, app.Start(context.Background()), "shut down")
}

func TestLogBufferOption(t *testing.T) {
	app, _ := newTestApp(t, Options{LogBuffer: 2})
	app.Logger.Info("a")
	app.Logger.Info("b")
	app.Logger.Info("c")
	require.Equal(t, 2, app.Logger.Count())
}
