package service

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hasentry/sentry/pkg/manifest"
	"github.com/hasentry/sentry/pkg/observability"
)

// Watcher triggers a rescan when component descriptors change on disk.
// Events are debounced so a burst of writes (an addon update rewriting a
// whole directory) causes one rescan, not dozens.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *observability.Logger
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewWatcher creates a watcher over the given directories. Glob patterns are
// expanded; paths that do not exist are skipped. Returns an error only when
// the underlying watcher cannot be created or nothing is watchable.
func NewWatcher(roots []string, debounce time.Duration, logger *observability.Logger, onChange func()) (*Watcher, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if debounce <= 0 {
		debounce = 5 * time.Second
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := 0
	for _, dir := range expandWatchRoots(roots) {
		if err := fs.Add(dir); err != nil {
			logger.WithError(err).WithField("dir", dir).Warn("Could not watch directory")
			continue
		}
		watched++
	}
	if watched == 0 {
		fs.Close()
		return nil, os.ErrNotExist
	}
	logger.WithField("directories", watched).Info("Watching descriptor directories")

	return &Watcher{
		fs:       fs,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start begins consuming filesystem events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the watcher. A pending debounced rescan is dropped.
func (w *Watcher) Stop() {
	close(w.done)
	w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if relevantEvent(event) {
				w.logger.WithFields(map[string]interface{}{
					"path": event.Name,
					"op":   event.Op.String(),
				}).Debug("Descriptor change detected")
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Filesystem watcher error")
		}
	}
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
		default:
			w.onChange()
		}
	})
}

// relevantEvent filters to changes that can alter the graph: descriptor
// writes and directory-level create/remove/rename.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}
	if event.Op&fsnotify.Write != 0 {
		return strings.EqualFold(filepath.Base(event.Name), manifest.DescriptorName)
	}
	return false
}

// expandWatchRoots expands glob patterns and drops paths that are not
// existing directories.
func expandWatchRoots(roots []string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, root := range roots {
		if strings.ContainsAny(root, "*?[") {
			matches, err := filepath.Glob(root)
			if err != nil {
				continue
			}
			for _, match := range matches {
				add(match)
			}
			continue
		}
		add(root)
	}
	return out
}
