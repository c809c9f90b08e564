// Package watch implements a debounced filesystem watcher that
// re-runs the quality gate suite whenever a source file changes.
// Grounded on the debounce-map-plus-ticker shape of
// internal/core/mangle_watcher.go's MangleWatcher, generalized from
// watching a single .nerd/mangle directory for .mg files to a whole
// source tree for any extension the parser registry recognizes.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cortex/internal/logging"
)

// Watcher watches a directory tree and invokes OnChange, debounced,
// whenever a settled batch of file events is ready to process.
type Watcher struct {
	root        string
	interesting func(path string) bool
	debounceDur time.Duration

	watcher *fsnotify.Watcher

	mu          sync.Mutex
	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// New builds a Watcher rooted at root. interesting filters which
// paths trigger OnChange (typically registry.ParserFor's ok return).
func New(root string, interesting func(path string) bool) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:        root,
		interesting: interesting,
		debounceDur: 500 * time.Millisecond,
		watcher:     fw,
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start adds every directory under root to the watch list and begins
// the debounced event loop in a goroutine. Non-blocking.
func (w *Watcher) Start(ctx context.Context, onChange func(paths []string)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if addErr := w.watcher.Add(path); addErr != nil {
				logging.Get(logging.CategoryGate).Warnf("watch: failed to add %s: %v", path, addErr)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.run(ctx, onChange)
	return nil
}

// Stop halts the watch loop and blocks until it exits.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context, onChange func(paths []string)) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryGate).Errorf("watch: fsnotify error: %v", err)
		case <-ticker.C:
			w.flushSettled(onChange)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.interesting(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushSettled(onChange func(paths []string)) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	if len(settled) > 0 {
		onChange(settled)
	}
}
