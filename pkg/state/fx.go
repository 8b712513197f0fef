package state

import (
	"context"
	"path/filepath"

	"go.uber.org/fx"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
)

// Module is the fx module for state management.
var Module = fx.Module("state",
	fx.Provide(NewKVStore),
)

// NewKVStore creates a new KV store for fx.
func NewKVStore(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
) (KV, error) {
	stateConfig := &Config{
		Backend:       BackendFile,
		FilePath:      filepath.Join(config.DefaultHome(), "state.json"),
		AutoSave:      true,
		SaveIntervalS: 5,
	}

	if cfg.State.Backend != "" {
		stateConfig.Backend = BackendType(cfg.State.Backend)
	}
	if cfg.State.FilePath != "" {
		stateConfig.FilePath = cfg.State.FilePath
	}
	// Shared Redis config with a state-specific prefix.
	if cfg.Redis.Addr != "" {
		stateConfig.RedisAddr = cfg.Redis.Addr
		stateConfig.RedisPassword = cfg.Redis.Password
		stateConfig.RedisDB = cfg.Redis.DB
		if cfg.State.Prefix != "" {
			stateConfig.RedisPrefix = cfg.State.Prefix
		}
	}

	store, err := NewKV(log, stateConfig)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("state store initialized")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
