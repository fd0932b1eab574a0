package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Event delivery through fsnotify is timing-dependent, so these tests
// drive the debounce and reload paths directly and leave live
// filesystem events to manual testing.

func writeConfig(t *testing.T, path, binary string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Checker.Binary = binary
	require.NoError(t, cfg.Save(path))
}

func TestWatcher_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "pyrefly")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	assert.False(t, w.IsWatching())

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	// Start is idempotent while running
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	assert.False(t, w.IsWatching())

	// Stop after stop is a no-op
	w.Stop()
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "mypy")

	var got *Config
	w, err := NewWatcher(path, func(cfg *Config) { got = cfg })
	require.NoError(t, err)
	defer w.watcher.Close()

	w.reload()

	require.NotNil(t, got)
	assert.Equal(t, "mypy", got.Checker.Binary)
	assert.Equal(t, 1, w.Stats().Reloads)
	assert.Equal(t, 0, w.Stats().Errors)
}

func TestWatcher_ReloadSkipsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	calls := 0
	w, err := NewWatcher(path, func(*Config) { calls++ })
	require.NoError(t, err)
	defer w.watcher.Close()

	// Malformed YAML is rejected without invoking the callback
	require.NoError(t, os.WriteFile(path, []byte("checker: [oops"), 0644))
	w.reload()
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, w.Stats().Errors)

	// A config that parses but fails validation is also rejected
	require.NoError(t, os.WriteFile(path, []byte("rewards:\n  multipliers: []\n"), 0644))
	w.reload()
	assert.Equal(t, 0, calls)
	assert.Equal(t, 2, w.Stats().Errors)

	// A fixed file reloads normally
	writeConfig(t, path, "pyright")
	w.reload()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, w.Stats().Reloads)
}

func TestWatcher_HandleEventFilters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "pyrefly")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	// Events for other files in the directory are ignored
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write})
	assert.Empty(t, w.debounceMap)

	// Chmod on the config file is ignored
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	assert.Empty(t, w.debounceMap)

	// A write to the config file is recorded for debouncing
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Len(t, w.debounceMap, 1)
}

func TestWatcher_DebounceSettling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "pyrefly")

	calls := 0
	w, err := NewWatcher(path, func(*Config) { calls++ })
	require.NoError(t, err)
	defer w.watcher.Close()

	// A fresh event has not settled yet
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	w.processDebouncedEvents()
	assert.Equal(t, 0, calls)
	assert.Len(t, w.debounceMap, 1)

	// Backdate the event past the debounce window
	w.mu.Lock()
	w.debounceMap[w.path] = time.Now().Add(-time.Second)
	w.mu.Unlock()

	w.processDebouncedEvents()
	assert.Equal(t, 1, calls)
	assert.Empty(t, w.debounceMap)
}
