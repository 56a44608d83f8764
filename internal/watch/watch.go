// Package watch tails a session-store file for writes so a CLI command can
// react to progress in near-real-time rather than polling.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher notifies on every write/create/rename event touching path,
// debounced so a burst of writes collapses into one notification.
type FileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New starts watching path's parent directory (the file itself may not
// exist yet, e.g. a session store created on first run).
func New(path string, debounce time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &FileWatcher{path: path, debounce: debounce, watcher: w}, nil
}

// Close stops the watcher.
func (f *FileWatcher) Close() error {
	return f.watcher.Close()
}

// Changes streams a debounced tick every time f.path is created, written,
// or renamed, until ctx is cancelled. The returned channel is closed when
// the watcher stops.
func (f *FileWatcher) Changes(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-f.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(f.debounce)
				timerC = timer.C
			case <-timerC:
				timerC = nil
				select {
				case out <- struct{}{}:
				default:
				}
			case _, ok := <-f.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out
}

// Exists reports whether path currently exists, for an initial poll before
// the first filesystem event arrives.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
