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

// Reloadable is the subset of configuration that may change while the
// process runs. Everything else, credentials above all, is immutable
// once loaded and requires a restart.
type Reloadable struct {
	// LogLevel is the new logging level.
	LogLevel string

	// Retention is the new audit retention policy.
	Retention RetentionConfig
}

// Watcher watches the configuration file for changes and applies the
// reloadable subset. Edits are debounced so editors that write in
// several steps trigger a single reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// last holds the immutable sections of the running configuration,
	// used to detect on-disk changes that need a restart.
	last *Config
}

// NewWatcher creates a watcher over the given configuration file.
// The running configuration is used to detect changes to immutable
// sections.
func NewWatcher(path string, running *Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		path:     path,
		logger:   slog.Default().With("component", "config.watcher"),
		debounce: newDebouncer(200 * time.Millisecond),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		last:     running,
	}, nil
}

// Watch blocks processing file events until the context is cancelled or
// Stop is called. onReload receives the reloadable subset of each valid
// new configuration.
func (w *Watcher) Watch(ctx context.Context, onReload func(Reloadable)) error {
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
		close(w.doneCh)
	}()

	// Watch the directory rather than the file so atomic rename-based
	// saves keep being observed.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.debounce.trigger(func() {
				w.reload(onReload)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.debounce.stop()
	return w.watcher.Close()
}

// reload parses the changed file, applies the reloadable subset, and
// warns when immutable sections changed on disk.
func (w *Watcher) reload(onReload func(Reloadable)) {
	cfg, err := LoadConfigWithEnvOverrides(w.path)
	if err != nil {
		w.logger.Error("ignoring invalid config change", "error", err)
		return
	}

	if w.immutableChanged(cfg) {
		w.logger.Warn("credentials or environments changed on disk, restart required to apply")
	}

	w.logger.Info("applying reloadable config changes",
		"log_level", cfg.Telemetry.Logging.Level,
		"retention_days", cfg.Audit.Retention.Days,
	)
	onReload(Reloadable{
		LogLevel:  cfg.Telemetry.Logging.Level,
		Retention: cfg.Audit.Retention,
	})
	w.last = cfg
}

// immutableChanged reports whether a section that cannot be hot-applied
// differs from the running configuration.
func (w *Watcher) immutableChanged(next *Config) bool {
	if w.last == nil {
		return false
	}
	if len(next.Environments) != len(w.last.Environments) {
		return true
	}
	for name, env := range next.Environments {
		if w.last.Environments[name] != env {
			return true
		}
	}
	return next.Gateway.ListenAddress != w.last.Gateway.ListenAddress
}

// debouncer delays a callback until events stop arriving for the
// configured interval.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
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
	d.timer = time.AfterFunc(d.interval, callback)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
