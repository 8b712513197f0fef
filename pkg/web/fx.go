package web

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
)

// Module provides the status server for fx dependency injection.
var Module = fx.Module("web",
	fx.Provide(NewServer),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *Server, cfg *config.Config, log *logger.Logger) {
	if !cfg.Web.Enabled {
		log.Info("status server disabled in config")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting status server",
				zap.String("host", cfg.Web.Host),
				zap.Int("port", cfg.Web.Port),
			)
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.Stop(shutdownCtx)
		},
	})
}
