// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and delivers the
// new config to a callback. Editors replace files with write+rename, so the
// watcher watches the directory, filters on the file name, and debounces
// bursts of events into one reload.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*Config)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending bool
	last    time.Time
}

// NewWatcher creates a watcher for the config file at path. onReload is
// called from the watcher goroutine with each successfully reloaded config;
// reloads that fail to parse or validate are dropped so a half-saved file
// never replaces a good config.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		debounce: 200 * time.Millisecond,
		onReload: onReload,
		watcher:  fw,
		ctx:      ctx,
		cancel:   cancel,
	}
	return w, nil
}

// Watch starts watching. It returns after the watch is registered; events
// are processed on background goroutines until Close.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()
	return nil
}

// processEvents marks the config dirty on relevant filesystem events.
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
			w.pending = true
			w.last = time.Now()
			w.mu.Unlock()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// processPending reloads once a dirty config has been quiet for the
// debounce window.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.pending && time.Since(w.last) >= w.debounce
			if ready {
				w.pending = false
			}
			w.mu.Unlock()

			if !ready {
				continue
			}
			if cfg, err := LoadFromPath(w.path); err == nil {
				w.onReload(cfg)
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}
