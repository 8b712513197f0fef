package channels

import (
	"fmt"
	"strings"

	"vancedhelper/pkg/channels/console"
	"vancedhelper/pkg/channels/discord"
	"vancedhelper/pkg/channels/telegram"
	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/logger"
)

// BuildChannel creates a channel instance from the current config.
func BuildChannel(
	name string,
	log *logger.Logger,
	cmdRegistry *commands.Registry,
	cfg *config.Config,
) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "discord":
		return discord.NewChannel(log, cfg.Channels.Discord, cmdRegistry)
	case "telegram":
		return telegram.New(log, &cfg.Channels.Telegram, cmdRegistry)
	case "console":
		return console.NewChannel(log, cfg.Channels.Console, cmdRegistry), nil
	default:
		return nil, fmt.Errorf("unknown channel: %s", name)
	}
}

// IsChannelEnabled checks whether a channel is enabled in config.
func IsChannelEnabled(name string, cfg *config.Config) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "discord":
		return cfg.Channels.Discord.Enabled, nil
	case "telegram":
		return cfg.Channels.Telegram.Enabled, nil
	case "console":
		return cfg.Channels.Console.Enabled, nil
	default:
		return false, fmt.Errorf("unknown channel: %s", name)
	}
}
