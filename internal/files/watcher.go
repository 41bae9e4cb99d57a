package files

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when NewWatcher gets zero
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to one file
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewWatcher creates a watcher for path. Events closer together than
// debounce trigger a single callback.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "watcher")),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the watch is registered
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch calls onChange after the file is written, created or renamed into
// place. onChange runs on the watching goroutine, so changes made while it
// runs are coalesced into the next call. Watch returns nil when ctx is
// cancelled.
func (w *Watcher) Watch(ctx context.Context, onChange func(context.Context)) error {
	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve watched path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })

	w.logger.InfoContext(ctx, "watching for changes", slog.String("path", target))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.DebugContext(ctx, "change detected",
				slog.String("path", target),
				slog.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.ErrorContext(ctx, "watcher error", slog.String("error", err.Error()))
		}
	}
}
