package reminders

import (
	"context"
	"path/filepath"

	"go.uber.org/fx"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
)

// Module is the fx module for reminders.
var Module = fx.Module("reminders",
	fx.Provide(NewManager),
)

// NewManager creates the reminders manager for fx. When reminders are
// disabled the manager exists but never starts.
func NewManager(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
	notifier Notifier,
) *Manager {
	filePath := cfg.Reminders.FilePath
	if filePath == "" {
		filePath = filepath.Join(config.DefaultHome(), "reminders.json")
	}

	manager := New(log, notifier, &Config{
		FilePath:   filePath,
		MaxPerUser: cfg.Reminders.MaxPerUser,
	})

	if !cfg.Reminders.Enabled {
		log.Info("reminders are disabled")
		return manager
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start()
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop()
		},
	})

	return manager
}
