// Package watcher implements a recursive filesystem watcher with glob
// based exclude filters.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

var ErrClosed = errors.New("watcher closed")

// Watcher watches a directory tree recursively and invokes onChange for
// every filesystem event that isn't excluded. Newly created subdirectories
// are picked up automatically, removed ones are dropped.
type Watcher struct {
	lock     sync.Mutex
	baseDir  string
	fsw      *fsnotify.Watcher
	watched  map[string]struct{}
	exclude  map[string]glob.Glob
	onChange func(ctx context.Context, e fsnotify.Event)
	closed   bool
}

// New creates a watcher calling onChange for every event under baseDir.
// baseDir is the base path exclude expressions are matched relative to.
// onChange receives the context passed to Run.
func New(
	baseDir string,
	onChange func(ctx context.Context, e fsnotify.Event),
) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		baseDir:  baseDir,
		fsw:      fsw,
		watched:  make(map[string]struct{}),
		exclude:  make(map[string]glob.Glob),
		onChange: onChange,
	}, nil
}

// Ignore adds an exclude glob filter, matched against paths relative
// to the base directory. Returns ErrClosed if the watcher is closed.
func (w *Watcher) Ignore(globExpression string) error {
	g, err := glob.Compile(globExpression)
	if err != nil {
		return fmt.Errorf("compiling glob %q: %w", globExpression, err)
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.exclude[globExpression] = g
	return nil
}

// Add starts watching dir and all of its subdirectories recursively,
// skipping excluded ones. Returns ErrClosed if the watcher is closed.
func (w *Watcher) Add(dir string) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return ErrClosed
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		excluded, err := w.isExcluded(path)
		if err != nil {
			return err
		}
		if excluded {
			return filepath.SkipDir
		}
		if _, ok := w.watched[path]; ok {
			return nil // Already watched.
		}
		w.watched[path] = struct{}{}
		return w.fsw.Add(path)
	})
}

// Remove stops watching dir and all of its subdirectories.
// Returns ErrClosed if the watcher is closed.
func (w *Watcher) Remove(dir string) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.remove(dir)
}

func (w *Watcher) remove(dir string) error {
	prefix := dir + string(filepath.Separator)
	for p := range w.watched {
		if p != dir && !strings.HasPrefix(p, prefix) {
			continue
		}
		delete(w.watched, p)
		if err := w.fsw.Remove(p); err != nil &&
			!errors.Is(err, fsnotify.ErrNonExistentWatch) {
			return err
		}
	}
	return nil
}

// WatchedDirs returns all currently watched directories.
func (w *Watcher) WatchedDirs() []string {
	w.lock.Lock()
	defer w.lock.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for p := range w.watched {
		dirs = append(dirs, p)
	}
	return dirs
}

// Close stops watching everything. Noop if already closed.
func (w *Watcher) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}

// Run processes filesystem events until ctx is canceled.
// Returns ErrClosed if the watcher is already closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.lock.Lock()
	if w.closed {
		w.lock.Unlock()
		return ErrClosed
	}
	w.lock.Unlock()
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-w.fsw.Events:
			if err := w.handle(ctx, e); err != nil {
				return err
			}
		case err := <-w.fsw.Errors:
			if err != nil {
				return fmt.Errorf("watching: %w", err)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, e fsnotify.Event) error {
	switch {
	case e.Op.Has(fsnotify.Create) && isDir(e.Name):
		// Start watching the created subdirectory tree.
		if err := w.Add(e.Name); err != nil {
			return fmt.Errorf("adding created directory: %w", err)
		}
	case e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename):
		w.lock.Lock()
		_, wasWatched := w.watched[e.Name]
		var err error
		if wasWatched {
			err = w.remove(e.Name)
		}
		w.lock.Unlock()
		if err != nil {
			return fmt.Errorf("removing directory: %w", err)
		}
	case e.Op == 0: // Unknown event type.
		return nil
	}

	w.lock.Lock()
	excluded, err := w.isExcluded(e.Name)
	w.lock.Unlock()
	if err != nil {
		return err
	}
	if excluded {
		return nil
	}
	w.onChange(ctx, e)
	return nil
}

// isExcluded requires w.lock to be held.
func (w *Watcher) isExcluded(path string) (bool, error) {
	relPath, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return false, fmt.Errorf(
			"determining relative path (base: %q; path: %q): %w",
			w.baseDir, path, err)
	}
	for _, x := range w.exclude {
		if x.Match(relPath) {
			return true, nil
		}
	}
	return false, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
