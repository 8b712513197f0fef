package main

import (
	"reflect"

	"go.uber.org/zap"

	"vancedhelper/pkg/channels"
	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/help"
	"vancedhelper/pkg/logger"
)

var channelNames = []string{"discord", "telegram", "console"}

// registerConfigReload wires config hot-reload: help topics are
// re-read, and any channel whose settings changed is rebuilt. Channels
// with unchanged settings keep their connections.
func registerConfigReload(
	watcher *config.Watcher,
	log *logger.Logger,
	manager *channels.Manager,
	registry *commands.Registry,
	library *help.Library,
	cfg *config.Config,
) {
	prev := cfg.Channels

	watcher.AddHandler(func(newCfg *config.Config) error {
		if err := library.Reload(); err != nil {
			log.Warn("reloading help topics failed", zap.Error(err))
		}

		for _, name := range channelNames {
			if !channelSettingsChanged(&prev, &newCfg.Channels, name) {
				continue
			}

			enabled, err := channels.IsChannelEnabled(name, newCfg)
			if err != nil {
				continue
			}

			if !enabled {
				if _, err := manager.GetChannel(name); err == nil {
					log.Info("channel disabled by config change", zap.String("channel", name))
					if err := manager.StopChannel(name); err != nil {
						log.Warn("stopping channel failed",
							zap.String("channel", name),
							zap.Error(err))
					}
				}
				continue
			}

			ch, err := channels.BuildChannel(name, log, registry, newCfg)
			if err != nil {
				log.Warn("rebuilding channel failed",
					zap.String("channel", name),
					zap.Error(err))
				continue
			}

			log.Info("channel settings changed, reloading", zap.String("channel", name))
			if err := manager.ReloadChannel(ch); err != nil {
				log.Warn("reloading channel failed",
					zap.String("channel", name),
					zap.Error(err))
			}
		}

		prev = newCfg.Channels
		return nil
	})
}

func channelSettingsChanged(prev, next *config.ChannelsConfig, name string) bool {
	switch name {
	case "discord":
		return !reflect.DeepEqual(prev.Discord, next.Discord)
	case "telegram":
		return !reflect.DeepEqual(prev.Telegram, next.Telegram)
	case "console":
		return !reflect.DeepEqual(prev.Console, next.Console)
	default:
		return false
	}
}
