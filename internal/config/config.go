// Package config provides configuration loading, validation, and management
// for the presencebot application. It handles reading from YAML files,
// environment variable overrides, default values, and validation of
// configuration parameters.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config defines the application configuration parameters for all components
// of the presencebot system, including logging, the Roblox presence provider,
// the Telegram notification sink, the watcher engine, and the place cache
// database.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Roblox   RobloxConfig   `mapstructure:"roblox"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Database DatabaseConfig `mapstructure:"database"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// RobloxConfig holds the presence provider settings. Tracked maps a stable
// display key (chosen by the operator, not derived from provider data) to a
// numeric Roblox user ID. The set is fixed for the process lifetime.
type RobloxConfig struct {
	Cookie  string           `mapstructure:"cookie"`
	Tracked map[string]int64 `mapstructure:"tracked" validate:"required,min=1,dive,gt=0"`
	Subject string           `mapstructure:"subject"`
}

// TelegramConfig holds the notification sink settings. AlertChatID receives
// operational rate-limit alerts; it defaults to ChatID when unset.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	ChatID      int64  `mapstructure:"chat_id"       validate:"required"`
	AlertChatID int64  `mapstructure:"alert_chat_id"`
	AdminID     int64  `mapstructure:"admin_id"      validate:"required,gt=0"`
}

// WatcherConfig controls the poll cadence and the re-lookup cooldown for
// place IDs that previously failed to resolve.
type WatcherConfig struct {
	Interval             time.Duration `mapstructure:"interval"               validate:"min=5s"`
	ResolveRetryCooldown time.Duration `mapstructure:"resolve_retry_cooldown" validate:"min=0"`
}

// DatabaseConfig holds the SQLite place cache settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// Validate checks struct tags and cross-field constraints that validator
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Roblox.Subject != "" {
		if _, ok := c.Roblox.Tracked[c.Roblox.Subject]; !ok {
			return fmt.Errorf("roblox.subject %q is not a tracked key", c.Roblox.Subject)
		}
	}

	return nil
}
