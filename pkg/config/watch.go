package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a reload fires.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temporary file are still observed.
// Bursts of events are collapsed by a debouncer.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	load     func(path string) (*Config, error)

	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for the configuration file at path. Reloads
// go through LoadConfigWithEnvOverrides, so invalid files are rejected
// before the callback sees them.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		interval: DefaultDebounceInterval,
		logger:   logger.With("component", "config.watcher"),
		load:     LoadConfigWithEnvOverrides,
	}
}

// SetDebounceInterval changes the debounce quiet period.
func (w *Watcher) SetDebounceInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Watch blocks until ctx is cancelled, invoking onReload with every
// successfully re-loaded configuration. Load failures are logged and the
// previous configuration stays in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", w.path, err)
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(target), err)
	}

	w.logger.Info("Config watcher started",
		"path", target,
		"debounce_ms", w.interval.Milliseconds(),
	)

	debounce := newDebouncer(w.interval)
	defer debounce.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Config watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event, target) {
				continue
			}

			w.logger.Debug("Config file event", "path", event.Name, "op", event.Op.String())

			debounce.trigger(func() {
				cfg, err := w.load(w.path)
				if err != nil {
					w.logger.Error("Config reload failed, keeping previous configuration", "error", err)
					return
				}
				w.logger.Info("Config reloaded", "path", target)
				onReload(cfg)
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("Config watcher error", "error", err)
		}
	}
}

// relevant reports whether event touches the watched file.
func (w *Watcher) relevant(event fsnotify.Event, target string) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == target
}

// debouncer fires the most recent callback after a quiet period.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			callback()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
