// Package watch reloads the build script when it or one of its includes changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/nantrunner/internal/logfields"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc is invoked once per debounced burst of changes.
type ReloadFunc func(ctx context.Context) error

// ScriptWatcher monitors a set of script files and triggers debounced reloads.
// Directories are watched rather than files, so editors that replace files
// on save keep being observed.
type ScriptWatcher struct {
	watcher      *fsnotify.Watcher
	onChange     ReloadFunc
	debounceTime time.Duration
	logger       *slog.Logger

	mu    sync.RWMutex
	files map[string]bool
	dirs  map[string]bool

	stopChan   chan struct{}
	reloadChan chan struct{}
	stopOnce   sync.Once
}

// New creates a watcher calling onChange after debounce of quiet.
func New(debounce time.Duration, onChange ReloadFunc, logger *slog.Logger) (*ScriptWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptWatcher{
		watcher:      watcher,
		onChange:     onChange,
		debounceTime: debounce,
		logger:       logger,
		files:        make(map[string]bool),
		dirs:         make(map[string]bool),
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
	}, nil
}

// SetFiles replaces the watched file set, typically the files of the last load.
func (sw *ScriptWatcher) SetFiles(paths []string) error {
	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve script path %s: %w", p, err)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	var added []string
	for dir := range dirs {
		if sw.dirs[dir] {
			continue
		}
		if err := sw.watcher.Add(dir); err != nil {
			// Keep the previous set intact.
			for _, d := range added {
				_ = sw.watcher.Remove(d)
			}
			return fmt.Errorf("failed to watch script directory %s: %w", dir, err)
		}
		added = append(added, dir)
	}
	for dir := range sw.dirs {
		if !dirs[dir] {
			_ = sw.watcher.Remove(dir)
		}
	}
	sw.files = files
	sw.dirs = dirs
	return nil
}

// Files returns the watched files.
func (sw *ScriptWatcher) Files() []string {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	out := make([]string, 0, len(sw.files))
	for f := range sw.files {
		out = append(out, f)
	}
	return out
}

// Start begins monitoring.
func (sw *ScriptWatcher) Start(ctx context.Context) {
	sw.logger.Info("Starting script watcher", slog.Int("files", len(sw.Files())))
	go sw.watchLoop(ctx)
	go sw.reloadLoop(ctx)
}

// Stop stops monitoring and releases the underlying watcher.
func (sw *ScriptWatcher) Stop() error {
	var err error
	sw.stopOnce.Do(func() {
		sw.logger.Info("Stopping script watcher")
		close(sw.stopChan)
		err = sw.watcher.Close()
	})
	return err
}

func (sw *ScriptWatcher) watching(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.files[abs]
}

func (sw *ScriptWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.watching(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				sw.logger.Debug("Script change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
				sw.triggerReload()
			case event.Has(fsnotify.Remove):
				sw.logger.Warn("Script file removed", logfields.File(event.Name))
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("Script watcher error", logfields.Error(err))
		}
	}
}

func (sw *ScriptWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stopTimer := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-sw.stopChan:
			stopTimer()
			return
		case <-sw.reloadChan:
			stopTimer()
			reloadTimer = time.AfterFunc(sw.debounceTime, func() {
				if err := sw.onChange(ctx); err != nil {
					sw.logger.Error("Failed to reload build script", logfields.Error(err))
				}
			})
		}
	}
}

// triggerReload requests a debounced reload; requests coalesce while one is pending.
func (sw *ScriptWatcher) triggerReload() {
	select {
	case sw.reloadChan <- struct{}{}:
	default:
	}
}
