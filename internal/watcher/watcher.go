// Package watcher reloads the models file when it changes on disk.
//
// It is used by `linkq serve --watch` so relationship definitions can be
// edited without restarting the server.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aidanlsb/linkq/internal/schema"
)

// ErrInvalidModels is reported when a changed models file loads but fails
// validation. The previous schema stays in effect.
var ErrInvalidModels = errors.New("models file has issues")

// Watcher monitors a models file and reloads it after changes settle.
type Watcher struct {
	path string

	debounceDelay time.Duration
	logger        *slog.Logger

	pending time.Time
	mu      sync.Mutex

	onReload func(*schema.Schema)
	onError  func(error)
}

// Config holds configuration options for the Watcher.
type Config struct {
	Path          string
	DebounceDelay time.Duration // Default: 100ms
	Logger        *slog.Logger

	// OnReload receives every schema that loads and validates cleanly.
	OnReload func(*schema.Schema)
	// OnError receives load and validation failures. Optional.
	OnError func(error)
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("models path is required")
	}
	if cfg.OnReload == nil {
		return nil, fmt.Errorf("reload callback is required")
	}

	debounce := cfg.DebounceDelay
	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:          abs,
		debounceDelay: debounce,
		logger:        logger,
		onReload:      cfg.OnReload,
		onError:       cfg.OnError,
	}, nil
}

// Start begins watching the models file.
// It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Debug("watching models", slog.String("path", w.path))

	ticker := time.NewTicker(w.debounceDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))

		case <-ticker.C:
			w.processPending()
		}
	}
}

// handleEvent schedules a reload for writes or replacements of the models file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("models changed", slog.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

// processPending reloads once the debounce delay has passed since the last event.
func (w *Watcher) processPending() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounceDelay {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	s, err := Reload(w.path)
	if err != nil {
		w.logger.Warn("models reload failed", slog.String("path", w.path), slog.Any("error", err))
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.logger.Info("models reloaded", slog.String("path", w.path), slog.Int("models", len(s.Models)))
	w.onReload(s)
}

// Reload loads and validates the models file at path.
func Reload(path string) (*schema.Schema, error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	if issues := schema.Validate(s); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModels, issues[0].Error())
	}
	return s, nil
}
