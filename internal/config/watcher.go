package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"candycheck/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a config file for changes and reloads it. It watches
// the parent directory rather than the file itself so editors that
// replace the file by rename keep triggering events.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	path        string
	dir         string
	onReload    func(*Config)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Reloads       int
	Errors        int
	LastEventTime time.Time
}

// NewWatcher creates a watcher for the given config path. onReload is
// called with the freshly loaded config after each settled change; it
// runs on the watcher goroutine.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		path:        abs,
		dir:         filepath.Dir(abs),
		onReload:    onReload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	return w, nil
}

// Start begins watching the config file's directory.
// This method is non-blocking; it starts the watcher in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		logging.ServerWarn("config watcher: failed to create config dir %s: %v (continuing anyway)", w.dir, err)
	}

	if err := w.watcher.Add(w.dir); err != nil {
		// Directory may not exist yet; reloads resume once it does
		logging.ServerWarn("config watcher: initial watch failed: %v", err)
	} else {
		logging.Server("config watcher: watching %s", w.path)
	}

	go w.run(ctx)

	return nil
}

// Stop stops the watcher and waits for cleanup.
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

	if err := w.watcher.Close(); err != nil {
		logging.ServerError("config watcher: error closing watcher: %v", err)
	}
	logging.Server("config watcher: stopped")
}

// IsWatching returns true if the watcher is currently running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns the current watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// run is the main event loop for the watcher.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// Debounce timer for batching rapid changes
	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Server("config watcher: context cancelled")
			return

		case <-w.stopCh:
			logging.Server("config watcher: stop signal received")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				logging.Server("config watcher: event channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				logging.Server("config watcher: error channel closed")
				return
			}
			logging.ServerError("config watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebouncedEvents()
		}
	}
}

// handleEvent records a filesystem event on the config file for
// debounced processing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return // Ignore chmod, remove, etc.
	}

	logging.ServerDebug("config watcher: %s changed", event.Name)

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.debounceMap[w.path] = time.Now()
	w.mu.Unlock()
}

// processDebouncedEvents reloads once events have settled past the
// debounce window.
func (w *Watcher) processDebouncedEvents() {
	w.mu.Lock()
	now := time.Now()
	reload := false
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			delete(w.debounceMap, path)
			reload = true
		}
	}
	w.mu.Unlock()

	if reload {
		w.reload()
	}
}

// reload loads and validates the config, then hands it to the callback.
// A half-saved or invalid file is logged and skipped; the previous
// config stays in effect.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.ServerError("config watcher: reload failed: %v", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}
	if err := cfg.Validate(); err != nil {
		logging.ServerError("config watcher: invalid config, keeping previous: %v", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()

	logging.Server("config watcher: reloaded %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
