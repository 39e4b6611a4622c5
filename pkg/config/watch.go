package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultWatchDelay is how long the watcher waits for edits to settle.
const DefaultWatchDelay = 500 * time.Millisecond

// ReloadFunc is invoked after watched fragments change. It returns the set of
// fragment paths to watch from then on, since edits may add or drop parents.
type ReloadFunc func(ctx context.Context) ([]string, error)

// Watcher re-runs a reload function when fragment files change.
type Watcher struct {
	logger zerolog.Logger
	delay  time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	dirs    map[string]struct{}
}

// NewWatcher creates a watcher. A non-positive delay uses DefaultWatchDelay.
func NewWatcher(logger zerolog.Logger, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	return &Watcher{
		logger: logger,
		delay:  delay,
		files:  make(map[string]struct{}),
		dirs:   make(map[string]struct{}),
	}
}

// Run watches files until ctx is canceled. Parent directories are watched
// rather than the files themselves so that editors replacing a file by
// rename are still observed.
func (w *Watcher) Run(ctx context.Context, files []string, reload ReloadFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	if err := w.track(files); err != nil {
		return err
	}

	w.logger.Info().
		Int("files", len(files)).
		Msg("Watching fragments")

	// Reloads run on this goroutine, so they never overlap and none is left
	// running once Run returns.
	debounce := time.NewTimer(w.delay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.watched(event.Name) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Fragment changed")

			debounce.Reset(w.delay)

		case <-debounce.C:
			w.trigger(ctx, reload)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// trigger runs reload and retargets the watcher at the returned files.
func (w *Watcher) trigger(ctx context.Context, reload ReloadFunc) {
	if ctx.Err() != nil {
		return
	}

	files, err := reload(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Reload failed")
		return
	}
	if files == nil {
		return
	}
	if err := w.track(files); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to update watched fragments")
	}
}

// track replaces the watched file set and adds any new parent directories.
func (w *Watcher) track(files []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.files = make(map[string]struct{}, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = struct{}{}

		dir := filepath.Dir(abs)
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	return nil
}

func (w *Watcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[abs]
	return ok
}
