// Package watch reports changes to a repository's refs and object store.
package watch

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitlane/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

// Watcher calls a function once per burst of repository changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}
	once     sync.Once
}

// Start watches the git directory of the repository at root and calls fn,
// from its own goroutine, after delay has passed without further changes.
func Start(root string, delay time.Duration, fn func()) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for path := range Paths(root) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fw.Add(path); err != nil {
			err := errors.Join(err, fw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w := &Watcher{
		watcher:  fw,
		debounce: debounce.New(delay, fn),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnore(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.debounce.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// Close stops watching; no callback starts after it returns.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
		w.debounce.Stop()
	})
	return err
}

// Paths lists the directories to watch for root: the git directory and its
// ref directories, or root itself when it is not a work tree with a .git
// directory (e.g. a bare repository).
func Paths(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if root == "" {
			return
		}
		gitDir := filepath.Join(root, ".git")
		if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
			gitDir = root
		}
		candidates := []string{
			gitDir,
			filepath.Join(gitDir, "refs"),
			filepath.Join(gitDir, "refs", "heads"),
			filepath.Join(gitDir, "refs", "tags"),
			filepath.Join(gitDir, "refs", "remotes"),
		}
		if remotes, err := os.ReadDir(filepath.Join(gitDir, "refs", "remotes")); err == nil {
			for _, e := range remotes {
				if e.IsDir() {
					candidates = append(candidates, filepath.Join(gitDir, "refs", "remotes", e.Name()))
				}
			}
		}
		for _, p := range slices.Compact(candidates) {
			if info, err := os.Stat(p); err != nil || !info.IsDir() {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func shouldIgnore(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
