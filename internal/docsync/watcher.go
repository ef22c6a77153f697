// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/api"
)

// DefaultDebounce is how long a file must stay quiet before upload.
const DefaultDebounce = 2 * time.Second

// tickInterval is how often pending files are checked.
const tickInterval = 100 * time.Millisecond

// Uploader sends files to the knowledge base. *orchestrator.Documents
// implements it.
type Uploader interface {
	Eligible(path string) bool
	UploadAndReindex(ctx context.Context, paths []string) (api.UploadResult, error)
}

// Batch is the outcome of one upload.
type Batch struct {
	Paths  []string
	Result api.UploadResult
	Err    error
}

// Options configures a Watcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// InitialSync uploads the eligible files already present on start.
	InitialSync bool

	// OnBatch is called after every upload attempt.
	OnBatch func(Batch)

	Logger *zap.Logger
}

// Watcher uploads changed files from one directory.
type Watcher struct {
	dir     string
	up      Uploader
	opts    Options
	log     *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for dir. Call Run to start it.
func New(dir string, up Uploader, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", dir)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		up:      up,
		opts:    opts,
		log:     opts.Logger.Named("docsync").With(zap.String("dir", dir)),
		watcher: fw,
		pending: make(map[string]time.Time),
	}, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if w.opts.InitialSync {
		if err := w.queueExisting(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.touch(event.Name, time.Now())
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case now := <-ticker.C:
			if due := w.due(now); len(due) > 0 {
				w.upload(ctx, due)
			}
		}
	}
}

func (w *Watcher) queueExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", w.dir, err)
	}
	// Already quiet: make them due on the first tick.
	past := time.Now().Add(-w.opts.Debounce)
	for _, e := range entries {
		if !e.IsDir() {
			w.touch(filepath.Join(w.dir, e.Name()), past)
		}
	}
	return nil
}

// touch marks path as changed at t if it is an upload candidate.
func (w *Watcher) touch(path string, t time.Time) {
	if ignored(path) || !w.up.Eligible(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = t
	w.mu.Unlock()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

// due removes and returns the paths quiet for at least the debounce.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.opts.Debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) upload(ctx context.Context, paths []string) {
	// Files removed while debouncing are skipped.
	existing := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return
	}

	res, err := w.up.UploadAndReindex(ctx, existing)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.log.Warn("sync failed", zap.Strings("files", existing), zap.Error(err))
	} else if err == nil {
		w.log.Info("synced", zap.Int("uploaded", len(res.Uploaded)), zap.Int("failed", len(res.Failed)))
	}
	if w.opts.OnBatch != nil {
		w.opts.OnBatch(Batch{Paths: existing, Result: res, Err: err})
	}
}

// ignored skips editor swap files and hidden files.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasPrefix(base, "~") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}
