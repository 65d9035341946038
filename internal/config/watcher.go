// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads the config file when it changes on disk, so theme and
// streaming toggles apply without restarting the client.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(*Config)
	logger   *log.Logger

	mu      sync.Mutex
	pending time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// WatchFile watches a config file and calls onChange with the freshly loaded
// configuration after each change settles. The parent directory is watched
// rather than the file itself, since atomic saves replace the file by rename.
func WatchFile(path string, debounce time.Duration, onChange func(*Config), logger *log.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		cancel()
		return nil, err
	}

	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logf("config watch error: %v", err)
		}
	}
}

// processPending waits for changes to settle before reloading, so a burst of
// editor events triggers a single reload.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			pending := w.pending
			settled := !pending.IsZero() && time.Since(pending) >= w.debounce
			if settled {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if !settled {
				continue
			}
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				w.logf("config reload failed: %v", err)
				continue
			}
			w.onChange(cfg)
		}
	}
}

func (w *Watcher) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}
