// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/IThioye/Concept-Connector/pkg/logging"
)

// ReloadHandler receives the freshly loaded configuration after the
// file changes on disk.
type ReloadHandler func(Config)

// Watcher reloads the config file when it changes. Only fields the
// caller chooses to re-apply take effect; a running server keeps its
// listener address regardless.
//
// # Thread Safety
//
// The handler is called from a single goroutine.
type Watcher struct {
	path     string
	handler  ReloadHandler
	log      *logging.Logger
	debounce time.Duration

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher builds a watcher for the given config file path.
func NewWatcher(path string, handler ReloadHandler, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		handler:  handler,
		log:      log,
		debounce: 200 * time.Millisecond,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Watches the parent directory rather than the
// file itself so editors that replace the file atomically (rename over)
// still trigger a reload.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Error("config reload failed, keeping previous config", "error", err)
				continue
			}
			w.log.Info("config reloaded", "path", w.path)
			w.handler(cfg)
		}
	}
}
