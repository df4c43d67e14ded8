package cluster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKubeconfigPathsPrefersExplicitPath(t *testing.T) {
	require.Equal(t, []string{"/etc/kube/config"}, KubeconfigPaths(Source{KubeconfigPath: "/etc/kube//config"}))
}

func TestKubeconfigPathsFollowsEnvironment(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	t.Setenv("KUBECONFIG", a+string(os.PathListSeparator)+b)
	require.Equal(t, []string{a, b}, KubeconfigPaths(Source{}))
}

func TestKubeconfigWatcherReportsWatchedFileOnly(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(target, []byte("apiVersion: v1\n"), 0o600))

	changes := make(chan []string, 4)
	w, err := NewKubeconfigWatcher([]string{target}, nil, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("apiVersion: v1\nkind: Config\n"), 0o600))

	select {
	case paths := <-changes:
		require.Equal(t, []string{target}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestKubeconfigWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewKubeconfigWatcher([]string{filepath.Join(t.TempDir(), "config")}, nil, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
