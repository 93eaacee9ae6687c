// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"crypto/sha1"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileDebounce is the default duration we wait for the contents to have
// stabilised to work around some editors writing an empty file and then the
// buffer.
const FileDebounce = 10 * time.Millisecond

// Change is a manifest change identified by a Watcher.
type Change struct {
	Event    fsnotify.Event
	Manifest *Manifest
	Err      error
}

// Watcher watches a single manifest file for semantically meaningful
// changes. Events that leave the file content unchanged are suppressed by
// content hashing.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	changes  chan<- Change
	last     [sha1.Size]byte
	log      *slog.Logger
}

// NewWatcher returns a Watcher for the manifest at path, sending change
// events on the changes channel once Watch is running. The debounce
// parameter specifies how long to wait after an fsnotify.Event before
// reading the file; if it is less than zero, FileDebounce is used. The
// manifest's directory is watched, so the watch survives editors that
// replace the file on save.
func NewWatcher(path string, changes chan<- Change, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if debounce < 0 {
		debounce = FileDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		watcher.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  watcher,
		changes:  changes,
		log:      log.With(slog.String("component", "manifest_watcher")),
	}, nil
}

// Watch sends the current state of the manifest and then processes file
// events until ctx is cancelled, closing the underlying watcher on return.
func (w *Watcher) Watch(ctx context.Context) {
	defer w.watcher.Close()
	w.load(ctx, fsnotify.Event{Name: w.path, Op: fsnotify.Create})
	for {
		select {
		case <-ctx.Done():
			w.log.LogAttrs(ctx, slog.LevelDebug, "stop")
			return
		case ev := <-w.watcher.Events:
			if ev.Name != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create):
				w.log.LogAttrs(ctx, slog.LevelDebug, "write", slog.String("name", ev.Name))
				time.Sleep(w.debounce)
				w.load(ctx, ev)
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				w.log.LogAttrs(ctx, slog.LevelDebug, "remove", slog.String("name", ev.Name))
				w.last = [sha1.Size]byte{}
				w.changes <- Change{Event: ev}
			}
		case err := <-w.watcher.Errors:
			w.changes <- Change{Err: err}
		}
	}
}

// load reads the manifest and sends a Change if the content differs from the
// last successfully parsed state.
func (w *Watcher) load(ctx context.Context, ev fsnotify.Event) {
	b, err := os.ReadFile(w.path)
	if err != nil {
		w.log.LogAttrs(ctx, slog.LevelError, "read manifest", slog.Any("error", err))
		w.changes <- Change{Event: ev, Err: err}
		return
	}
	sum := sha1.Sum(b)
	if sum == w.last {
		w.log.LogAttrs(ctx, slog.LevelDebug, "no change", slog.String("name", ev.Name))
		return
	}
	m, err := parse(b, filepath.Dir(w.path))
	if err == nil {
		w.last = sum
	}
	w.changes <- Change{Event: ev, Manifest: m, Err: err}
}
