package history

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/prompt"
)

// Module provides the prompt audit store and the recorder backed by it.
var Module = fx.Module("history",
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRecorder),
)

// ProvideStore creates the history store, or nil when history is
// disabled in the configuration.
func ProvideStore(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
) (*Store, error) {
	if !cfg.History.Enabled {
		log.Info("prompt history is disabled")
		return nil, nil
	}

	dbPath := cfg.History.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.DefaultHome(), "history.db")
	}

	store, err := NewStore(log, &StoreConfig{
		DBPath:    dbPath,
		Retention: time.Duration(cfg.History.RetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	sweeper := NewSweeper(store)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("prompt history store initialized", zap.String("path", dbPath))
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return store.Close()
		},
	})

	return store, nil
}

// ProvideRecorder exposes the store as the core's recorder, falling
// back to a no-op when history is disabled.
func ProvideRecorder(store *Store) prompt.Recorder {
	if store == nil {
		return prompt.NopRecorder{}
	}
	return store
}
