package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces rapid editor write events into one reload.
const reloadDebounce = 500 * time.Millisecond

// Watcher hot-reloads the configuration file and notifies subscribers.
// Intended for development; production deployments restart on config change.
type Watcher struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)

	fs     *fsnotify.Watcher
	stopCh chan struct{}
}

// NewWatcher starts watching the config file. The initial config is served
// until the first successful reload.
func NewWatcher(path string, initial *Config, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(path); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		logger:  logger,
		current: initial,
		fs:      fs,
		stopCh:  make(chan struct{}),
	}
	go w.loop()

	logger.Info("configuration hot reload enabled", zap.String("path", path))
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnReload registers a callback invoked after each successful reload.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) loop() {
	defer w.fs.Close()

	var debounce *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// reload parses and validates the file; an invalid file keeps the previous
// configuration in place.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", zap.String("path", w.path))
	for _, fn := range callbacks {
		fn(cfg)
	}
}
