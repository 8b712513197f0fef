package logger

import (
	"context"

	"go.uber.org/fx"

	"vancedhelper/pkg/config"
)

// Module provides the logger for fx dependency injection.
var Module = fx.Module("logger",
	fx.Provide(ProvideLogger),
)

// ProvideLogger builds the logger from the loaded configuration and ties
// Sync to application shutdown.
func ProvideLogger(cfg *config.Config, lc fx.Lifecycle) (*Logger, error) {
	lcfg := &Config{
		Level:       Level(cfg.Logging.Level),
		OutputPath:  cfg.Logging.File,
		MaxSize:     cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAge:      cfg.Logging.MaxAgeDays,
		Compress:    cfg.Logging.Compress,
		Development: cfg.Logging.Development,
	}

	log, err := New(lcfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync can fail on stdout sinks; shutdown should not.
			_ = log.Sync()
			return nil
		},
	})

	return log, nil
}
