package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads and validates configuration from, in order of precedence:
// 1. BOT_* environment variables (e.g. BOT_TELEGRAM_TOKEN)
// 2. the YAML file at configPath
// 3. built-in defaults
//
// A missing config file is not an error; scalar values may come from the
// environment instead. The roblox.tracked map cannot be expressed as a flat
// environment variable, so it must come from the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Unmarshal only consults the environment for keys it already knows
	// about; keys without a default must be bound explicitly.
	for _, key := range []string{
		"roblox.cookie",
		"roblox.subject",
		"telegram.token",
		"telegram.chat_id",
		"telegram.alert_chat_id",
		"telegram.admin_id",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Telegram.AlertChatID == 0 {
		cfg.Telegram.AlertChatID = cfg.Telegram.ChatID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("watcher.interval", 20*time.Second)
	v.SetDefault("watcher.resolve_retry_cooldown", 5*time.Minute)

	v.SetDefault("database.path", "presencebot.db")
}
