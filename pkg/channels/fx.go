package channels

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"vancedhelper/pkg/channels/console"
	"vancedhelper/pkg/channels/discord"
	"vancedhelper/pkg/channels/telegram"
	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/reminders"
)

// Module is the fx module for channels.
var Module = fx.Module("channels",
	fx.Provide(NewChannelManager),
	fx.Provide(
		fx.Annotate(
			newCommandChannelAdapter,
			fx.As(new(commands.ChannelManager)),
		),
	),
	fx.Provide(func(m *Manager) reminders.Notifier { return m }),
	fx.Invoke(RegisterChannels),
)

// NewChannelManager creates a new channel manager for fx.
func NewChannelManager(lc fx.Lifecycle, log *logger.Logger) *Manager {
	manager := NewManager(log)

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

// RegisterChannels registers all enabled channels with the manager.
func RegisterChannels(
	manager *Manager,
	log *logger.Logger,
	cmdRegistry *commands.Registry,
	cfg *config.Config,
) error {
	if cfg.Channels.Discord.Enabled {
		discordChannel, err := discord.NewChannel(log, cfg.Channels.Discord, cmdRegistry)
		if err != nil {
			log.Warn("failed to create discord channel, skipping", zap.Error(err))
		} else if err := manager.Register(discordChannel); err != nil {
			return err
		}
	}

	if cfg.Channels.Telegram.Enabled {
		tgChannel, err := telegram.New(log, &cfg.Channels.Telegram, cmdRegistry)
		if err != nil {
			log.Warn("failed to create telegram channel, skipping", zap.Error(err))
		} else if err := manager.Register(tgChannel); err != nil {
			return err
		}
	}

	if cfg.Channels.Console.Enabled {
		consoleChannel := console.NewChannel(log, cfg.Channels.Console, cmdRegistry)
		if err := manager.Register(consoleChannel); err != nil {
			return err
		}
	}

	return nil
}
