package config

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides configuration for fx dependency injection.
var Module = fx.Module("config",
	fx.Provide(ProvideLoader),
	fx.Provide(ProvideConfig),
)

// ProvideLoader provides a configuration loader.
func ProvideLoader() *Loader {
	return NewLoader()
}

// ProvideConfig loads and validates the configuration.
func ProvideConfig(loader *Loader) (*Config, error) {
	cfg, err := loader.Load("")
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideWatcher provides a configuration watcher with hot-reload tied
// to the application lifecycle.
func ProvideWatcher(loader *Loader, cfg *Config, lc fx.Lifecycle, log *zap.Logger) (*Watcher, error) {
	watcher := NewWatcher(loader, cfg, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return watcher.Start()
		},
		OnStop: func(ctx context.Context) error {
			watcher.Stop()
			return nil
		},
	})

	return watcher, nil
}
