package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateLogging(&cfg.Logging)
	v.validateCommands(&cfg.Commands)
	v.validatePrompt(&cfg.Prompt)
	v.validateChannels(&cfg.Channels)
	v.validateState(cfg)
	v.validateHistory(&cfg.History)
	v.validateWeb(&cfg.Web)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

func (v *Validator) validateLogging(c *LoggingConfig) {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("unknown level %q", c.Level))
	}
}

func (v *Validator) validateCommands(c *CommandsConfig) {
	if c.Prefix == "" {
		v.addError("commands.prefix", "must not be empty")
	}
	if strings.ContainsAny(c.Prefix, " \t\n") {
		v.addError("commands.prefix", "must not contain whitespace")
	}
}

func (v *Validator) validatePrompt(c *PromptConfig) {
	if c.TimeoutMinutes < 1 {
		v.addError("prompt.timeout_minutes", "must be at least 1")
	}
	if c.MaxRetries < 0 {
		v.addError("prompt.max_retries", "must not be negative")
	}
}

func (v *Validator) validateChannels(c *ChannelsConfig) {
	if c.Discord.Enabled && strings.TrimSpace(c.Discord.Token) == "" {
		v.addError("channels.discord.token", "required when the channel is enabled")
	}
	if c.Discord.Enabled && c.Discord.StatusIntervalS < 0 {
		v.addError("channels.discord.status_interval_s", "must not be negative")
	}
	if c.Telegram.Enabled && strings.TrimSpace(c.Telegram.Token) == "" {
		v.addError("channels.telegram.token", "required when the channel is enabled")
	}
}

func (v *Validator) validateState(cfg *Config) {
	switch cfg.State.Backend {
	case "file":
		if strings.TrimSpace(cfg.State.FilePath) == "" {
			v.addError("state.file_path", "required for the file backend")
		}
	case "redis":
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			v.addError("redis.addr", "required for the redis backend")
		}
	default:
		v.addError("state.backend", fmt.Sprintf("unknown backend %q", cfg.State.Backend))
	}
}

func (v *Validator) validateHistory(c *HistoryConfig) {
	if !c.Enabled {
		return
	}
	if strings.TrimSpace(c.DBPath) == "" {
		v.addError("history.db_path", "required when history is enabled")
	}
	if c.RetentionDays < 0 {
		v.addError("history.retention_days", "must not be negative")
	}
}

func (v *Validator) validateWeb(c *WebConfig) {
	if !c.Enabled {
		return
	}
	if c.Port < 1 || c.Port > 65535 {
		v.addError("web.port", fmt.Sprintf("invalid port %d", c.Port))
	}
	if strings.TrimSpace(c.Host) == "" {
		v.addError("web.host", "must not be empty")
	}
}

// ValidateConfig validates a configuration with a fresh validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
