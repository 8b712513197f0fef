package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler is called with the freshly loaded configuration when the
// config file changes.
type ChangeHandler func(*Config) error

// Watcher monitors the configuration file and reloads it on change.
// Reloads that fail to load or validate are dropped; the previous
// configuration stays active.
type Watcher struct {
	loader   *Loader
	config   *Config
	log      *zap.Logger
	handlers []ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a new configuration watcher.
func NewWatcher(loader *Loader, config *Config, log *zap.Logger) *Watcher {
	return &Watcher{
		loader: loader,
		config: config,
		log:    log,
	}
}

// AddHandler registers a handler to be called when configuration changes.
func (w *Watcher) AddHandler(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers = append(w.handlers, handler)
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.watching = true
	w.mu.Unlock()

	w.loader.viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := w.loader.Load("")
		if err != nil {
			w.log.Warn("reloading config failed", zap.Error(err))
			return
		}
		if err := ValidateConfig(newConfig); err != nil {
			w.log.Warn("reloaded config is invalid", zap.Error(err))
			return
		}

		w.mu.Lock()
		w.config = newConfig
		w.mu.Unlock()

		w.log.Info("configuration reloaded", zap.String("file", e.Name))
		w.notifyHandlers(newConfig)
	})

	w.loader.viper.WatchConfig()
	return nil
}

// Stop stops watching the configuration file.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.watching = false
}

// GetConfig returns the most recently loaded configuration.
func (w *Watcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.config
}

func (w *Watcher) notifyHandlers(config *Config) {
	w.mu.RLock()
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(config); err != nil {
			w.log.Warn("config change handler failed", zap.Error(err))
		}
	}
}
