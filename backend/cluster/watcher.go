package cluster

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

// KubeconfigPaths lists the files that make up src's configuration: the
// explicit path if set, otherwise the default loading precedence
// ($KUBECONFIG entries or ~/.kube/config).
func KubeconfigPaths(src Source) []string {
	if src.KubeconfigPath != "" {
		return []string{filepath.Clean(src.KubeconfigPath)}
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	paths := make([]string, 0, len(rules.GetLoadingPrecedence()))
	for _, p := range rules.GetLoadingPrecedence() {
		if p != "" {
			paths = append(paths, filepath.Clean(p))
		}
	}
	return paths
}

// KubeconfigWatcher reports debounced changes to a set of kubeconfig files.
// Directories are watched rather than files so editors that replace the file
// with a rename are still observed.
type KubeconfigWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func([]string)
	logger   common.Logger
	debounce time.Duration

	filters map[string]map[string]struct{}

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewKubeconfigWatcher starts watching paths. onChange receives the changed
// file paths after a quiet period of config.KubeconfigDebounce.
func NewKubeconfigWatcher(paths []string, logger common.Logger, onChange func([]string)) (*KubeconfigWatcher, error) {
	if logger == nil {
		logger = common.NoopLogger{}
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &KubeconfigWatcher{
		watcher:   fsWatcher,
		onChange:  onChange,
		logger:    logger,
		debounce:  config.KubeconfigDebounce,
		filters:   make(map[string]map[string]struct{}),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}

	for _, p := range paths {
		dir, name := filepath.Split(filepath.Clean(p))
		dir = filepath.Clean(dir)
		if _, ok := w.filters[dir]; !ok {
			w.filters[dir] = make(map[string]struct{})
			if err := fsWatcher.Add(dir); err != nil {
				logger.Warn(fmt.Sprintf("Failed to watch directory %s: %v", dir, err), "KubeconfigWatcher")
			}
		}
		w.filters[dir][name] = struct{}{}
	}

	go w.eventLoop()
	return w, nil
}

func (w *KubeconfigWatcher) eventLoop() {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	changedPaths := make(map[string]struct{})

	flush := func() {
		if len(changedPaths) == 0 || w.onChange == nil {
			return
		}
		paths := make([]string, 0, len(changedPaths))
		for p := range changedPaths {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		changedPaths = make(map[string]struct{})
		w.onChange(paths)
	}

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			dir, name := filepath.Split(filepath.Clean(event.Name))
			if _, accepted := w.filters[filepath.Clean(dir)][name]; !accepted {
				continue
			}

			changedPaths[filepath.Clean(event.Name)] = struct{}{}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			debounceCh = debounceTimer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("kubeconfig watcher error: %v", err), "KubeconfigWatcher")

		case <-debounceCh:
			debounceCh = nil
			flush()
		}
	}
}

// Stop ends the watch. It is safe to call more than once.
func (w *KubeconfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	<-w.stoppedCh
}
