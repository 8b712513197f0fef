// Package config provides configuration management for vancedhelper.
// It uses Viper for flexible configuration loading with support for:
// - Multiple formats (JSON, YAML, TOML)
// - Environment variables
// - Hot-reload
// - Default values
package config

import (
	"os"
	"path/filepath"
)

// Config represents the complete vancedhelper configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
	Channels  ChannelsConfig  `mapstructure:"channels" json:"channels"`
	Commands  CommandsConfig  `mapstructure:"commands" json:"commands"`
	Prompt    PromptConfig    `mapstructure:"prompt" json:"prompt"`
	State     StateConfig     `mapstructure:"state" json:"state"`
	Redis     RedisConfig     `mapstructure:"redis" json:"redis"`
	History   HistoryConfig   `mapstructure:"history" json:"history"`
	Reminders RemindersConfig `mapstructure:"reminders" json:"reminders"`
	Help      HelpConfig      `mapstructure:"help" json:"help"`
	Web       WebConfig       `mapstructure:"web" json:"web"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	File        string `mapstructure:"file" json:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
	Development bool   `mapstructure:"development" json:"development"`
}

// ChannelsConfig contains all channel configurations.
type ChannelsConfig struct {
	Discord  DiscordConfig  `mapstructure:"discord" json:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
	Console  ConsoleConfig  `mapstructure:"console" json:"console"`
}

// DiscordConfig for the Discord channel.
type DiscordConfig struct {
	Enabled   bool     `mapstructure:"enabled" json:"enabled"`
	Token     string   `mapstructure:"token" json:"token"`
	AllowFrom []string `mapstructure:"allow_from" json:"allow_from"`
	// Statuses are rotated as the bot's presence.
	Statuses        []string `mapstructure:"statuses" json:"statuses"`
	StatusIntervalS int      `mapstructure:"status_interval_s" json:"status_interval_s"`
}

// TelegramConfig for the Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `mapstructure:"enabled" json:"enabled"`
	Token     string   `mapstructure:"token" json:"token"`
	AllowFrom []string `mapstructure:"allow_from" json:"allow_from"`
}

// ConsoleConfig for the local console channel. The console subcommand
// flips Enabled on at startup; it is rarely set in the config file.
type ConsoleConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// User is the identity console input is attributed to.
	User string `mapstructure:"user" json:"user"`
}

// CommandsConfig controls command dispatch.
type CommandsConfig struct {
	Prefix string `mapstructure:"prefix" json:"prefix"`
}

// PromptConfig sets the defaults for interactive prompts.
type PromptConfig struct {
	TimeoutMinutes int `mapstructure:"timeout_minutes" json:"timeout_minutes"`
	// MaxRetries bounds validation failures per prompt; 0 is unbounded.
	MaxRetries     int  `mapstructure:"max_retries" json:"max_retries"`
	ScrubReactions bool `mapstructure:"scrub_reactions" json:"scrub_reactions"`
}

// StateConfig selects and configures the KV store backend.
type StateConfig struct {
	Backend  string `mapstructure:"backend" json:"backend"`
	FilePath string `mapstructure:"file_path" json:"file_path"`
	Prefix   string `mapstructure:"prefix" json:"prefix"`
}

// RedisConfig is the shared Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// HistoryConfig controls the prompt audit log.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	DBPath        string `mapstructure:"db_path" json:"db_path"`
	RetentionDays int    `mapstructure:"retention_days" json:"retention_days"`
}

// RemindersConfig controls reminder scheduling.
type RemindersConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	FilePath   string `mapstructure:"file_path" json:"file_path"`
	MaxPerUser int    `mapstructure:"max_per_user" json:"max_per_user"`
}

// HelpConfig controls help topic content.
type HelpConfig struct {
	// ContentPath points at a YAML topic file; empty uses the built-in
	// topics.
	ContentPath  string `mapstructure:"content_path" json:"content_path"`
	PageTimeoutS int    `mapstructure:"page_timeout_s" json:"page_timeout_s"`
}

// WebConfig controls the status HTTP server.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" json:"host"`
	Port    int    `mapstructure:"port" json:"port"`
}

// DefaultHome returns the default vancedhelper home directory.
func DefaultHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vancedhelper")
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	dataDir := DefaultHome()

	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			File:       filepath.Join(dataDir, "logs", "vancedhelper.log"),
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Enabled: false,
				Statuses: []string{
					"!help for commands",
					"answering prompts",
				},
				StatusIntervalS: 300,
			},
			Telegram: TelegramConfig{
				Enabled: false,
			},
			Console: ConsoleConfig{
				User: "console",
			},
		},
		Commands: CommandsConfig{
			Prefix: "!",
		},
		Prompt: PromptConfig{
			TimeoutMinutes: 2,
			MaxRetries:     0,
			ScrubReactions: true,
		},
		State: StateConfig{
			Backend:  "file",
			FilePath: filepath.Join(dataDir, "state.json"),
			Prefix:   "vancedhelper",
		},
		History: HistoryConfig{
			Enabled:       true,
			DBPath:        filepath.Join(dataDir, "history.db"),
			RetentionDays: 90,
		},
		Reminders: RemindersConfig{
			Enabled:    true,
			FilePath:   filepath.Join(dataDir, "reminders.json"),
			MaxPerUser: 25,
		},
		Help: HelpConfig{
			PageTimeoutS: 120,
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8642,
		},
	}
}
