package commands

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/help"
	"vancedhelper/pkg/history"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/prefs"
	"vancedhelper/pkg/prompt"
	"vancedhelper/pkg/reminders"
)

// Module provides the commands system.
var Module = fx.Module("commands",
	fx.Provide(ProvideRegistry),
	fx.Invoke(registerBuiltins),
	fx.Invoke(registerInteractive),
)

// ProvideRegistry creates the registry with the configured prefix.
func ProvideRegistry(cfg *config.Config) *Registry {
	return NewRegistry(cfg.Commands.Prefix)
}

// registerBuiltins registers built-in commands on startup.
func registerBuiltins(registry *Registry, log *logger.Logger) error {
	if err := RegisterBuiltinCommands(registry); err != nil {
		log.Error("failed to register builtin commands", zap.Error(err))
		return err
	}

	log.Info("registered builtin commands", zap.Int("count", len(registry.List())))
	return nil
}

// registerInteractive registers the commands with dependencies.
func registerInteractive(
	registry *Registry,
	log *logger.Logger,
	cfg *config.Config,
	prompter *prompt.Prompter,
	rems *reminders.Manager,
	prefsMgr *prefs.Manager,
	historyStore *history.Store,
	library *help.Library,
	pager *help.Pager,
	channelMgr ChannelManager,
) error {
	deps := Dependencies{
		Config:    cfg,
		Prompter:  prompter,
		Reminders: rems,
		Prefs:     prefsMgr,
		History:   historyStore,
		Library:   library,
		Pager:     pager,
		Channels:  channelMgr,
	}

	if err := RegisterInteractiveCommands(registry, deps); err != nil {
		log.Error("failed to register interactive commands", zap.Error(err))
		return err
	}

	log.Info("registered commands", zap.Int("total", len(registry.List())))
	return nil
}
