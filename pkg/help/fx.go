package help

import (
	"time"

	"go.uber.org/fx"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
)

// Module provides the help library and pager.
var Module = fx.Module("help",
	fx.Provide(ProvideLibrary),
	fx.Provide(ProvidePager),
)

// ProvideLibrary loads help topics from the configured content path.
func ProvideLibrary(log *logger.Logger, cfg *config.Config) (*Library, error) {
	return NewLibrary(log, cfg.Help.ContentPath)
}

// ProvidePager creates the reaction pager.
func ProvidePager(log *logger.Logger, cfg *config.Config) *Pager {
	return NewPager(log, time.Duration(cfg.Help.PageTimeoutS)*time.Second)
}
