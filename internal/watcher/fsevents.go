package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Targets lists the host state that affects the saved APT inventory.
type Targets struct {
	Status         string
	ExtendedStates string
	SourcesDir     string
}

// Paths returns the files and directories to watch. Unset fields are
// left out.
func (t Targets) Paths() []string {
	var paths []string
	for _, p := range []string{t.Status, t.ExtendedStates} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if t.SourcesDir != "" {
		paths = append(paths,
			filepath.Join(t.SourcesDir, "sources.list"),
			filepath.Join(t.SourcesDir, "sources.list.d"))
	}
	return paths
}

// Watcher runs a handler after the watched files change.
type Watcher struct {
	matcher  *Matcher
	debounce time.Duration
	onChange func(context.Context) error
	logger   *slog.Logger
}

// New creates a Watcher over paths.
func New(paths []string, debounce time.Duration, onChange func(context.Context) error, logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("change handler cannot be nil")
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %s", debounce)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		matcher:  NewMatcher(paths),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run watches until ctx is done. Handler errors are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.matcher.WatchDirs() {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logger.Debug("watching", "dir", dir)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !w.matcher.Match(ev.Name) {
				continue
			}
			w.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				w.logger.Warn("re-save failed", "error", err)
			}
		}
	}
}
