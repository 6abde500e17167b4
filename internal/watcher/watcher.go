package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"parcel/internal/logging"
)

// Watcher monitors collected source files and reports when one changes
// after collection, meaning the tree's snapshot of it is stale. Events are
// debounced per path since editors and renderers write in bursts.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	onStale  func(path string)
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New builds a watcher. onStale is invoked from a background goroutine once
// per settled change burst.
func New(debounce time.Duration, onStale func(path string), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		fw:       fw,
		debounce: debounce,
		onStale:  onStale,
		logger:   logger.With(logging.String(logging.FieldComponent, "watcher")),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add starts watching one path.
func (w *Watcher) Add(path string) error {
	return w.fw.Add(path)
}

// Run consumes filesystem events until the context is canceled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// schedule arms (or re-arms) the per-path debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.logger.Info("source changed since collection", logging.String("path", path))
		w.onStale(path)
	})
}

// Close stops the watcher and cancels pending notifications.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.fw.Close()
}
