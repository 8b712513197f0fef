package prompt

import (
	"time"

	"go.uber.org/fx"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
)

// Module provides the prompt engine.
var Module = fx.Module("prompt",
	fx.Provide(NewRegistry),
	fx.Provide(ProvidePrompter),
)

// ProvidePrompter builds the prompter from the loaded configuration.
func ProvidePrompter(registry *Registry, recorder Recorder, log *logger.Logger, cfg *config.Config) *Prompter {
	defaults := Options{
		Timeout:    time.Duration(cfg.Prompt.TimeoutMinutes) * time.Minute,
		MaxRetries: cfg.Prompt.MaxRetries,
		Scrub:      cfg.Prompt.ScrubReactions,
	}
	return NewPrompter(registry, recorder, log, defaults)
}
