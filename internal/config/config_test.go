package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
roblox:
  cookie: "SECURITY_COOKIE"
  tracked:
    alice: 100
    bob: 200
    target: 300
  subject: target
telegram:
  token: "123:abc"
  chat_id: -100123
  admin_id: 555
`

func TestLoad(t *testing.T) {
	t.Run("valid file with defaults applied", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, 20*time.Second, cfg.Watcher.Interval)
		assert.Equal(t, 5*time.Minute, cfg.Watcher.ResolveRetryCooldown)
		assert.Equal(t, "presencebot.db", cfg.Database.Path)

		assert.Equal(t, int64(300), cfg.Roblox.Tracked["target"])
		assert.Equal(t, "target", cfg.Roblox.Subject)
	})

	t.Run("alert chat defaults to the notification chat", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)
		assert.Equal(t, cfg.Telegram.ChatID, cfg.Telegram.AlertChatID)
	})

	t.Run("explicit alert chat is kept", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validConfig+"  alert_chat_id: -100999\n"))
		require.NoError(t, err)
		assert.Equal(t, int64(-100999), cfg.Telegram.AlertChatID)
	})

	t.Run("missing file is not an error when env supplies values", func(t *testing.T) {
		t.Setenv("BOT_ROBLOX_COOKIE", "from-env")
		t.Setenv("BOT_TELEGRAM_TOKEN", "123:abc")
		t.Setenv("BOT_TELEGRAM_CHAT_ID", "-100123")
		t.Setenv("BOT_TELEGRAM_ADMIN_ID", "555")

		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		// Tracked cannot come from a flat env var, so validation still
		// rejects the config, but the missing file itself is tolerated.
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "failed to read config file")
	})

	t.Run("scalar values come entirely from the environment", func(t *testing.T) {
		t.Setenv("BOT_TELEGRAM_TOKEN", "123:abc")
		t.Setenv("BOT_TELEGRAM_CHAT_ID", "-100123")
		t.Setenv("BOT_TELEGRAM_ADMIN_ID", "555")
		t.Setenv("BOT_ROBLOX_SUBJECT", "alice")
		t.Setenv("BOT_ROBLOX_COOKIE", "from-env")

		cfg, err := Load(writeConfig(t, "roblox:\n  tracked:\n    alice: 100\n"))
		require.NoError(t, err)
		assert.Equal(t, "123:abc", cfg.Telegram.Token)
		assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
		assert.Equal(t, int64(555), cfg.Telegram.AdminID)
		assert.Equal(t, "alice", cfg.Roblox.Subject)
		assert.Equal(t, "from-env", cfg.Roblox.Cookie)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("BOT_TELEGRAM_TOKEN", "override:token")

		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)
		assert.Equal(t, "override:token", cfg.Telegram.Token)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		_, err := Load(writeConfig(t, "roblox: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("interval below the floor fails", func(t *testing.T) {
		_, err := Load(writeConfig(t, validConfig+"watcher:\n  interval: 1s\n"))
		require.Error(t, err)
	})

	t.Run("empty tracked set fails", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
roblox:
  tracked: {}
telegram:
  token: "123:abc"
  chat_id: -100123
  admin_id: 555
`))
		require.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			Log:      LogConfig{Level: "info", Format: "json"},
			Roblox:   RobloxConfig{Tracked: map[string]int64{"alice": 100}},
			Telegram: TelegramConfig{Token: "123:abc", ChatID: -100123, AdminID: 555},
			Watcher:  WatcherConfig{Interval: 20 * time.Second},
			Database: DatabaseConfig{Path: "presencebot.db"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, base().Validate())
	})

	t.Run("subject must be a tracked key", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Roblox.Subject = "ghost"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a tracked key")
	})

	t.Run("empty subject disables correlation", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Roblox.Subject = ""
		require.NoError(t, cfg.Validate())
	})

	t.Run("non-positive tracked id fails", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Roblox.Tracked["bad"] = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("bad log level fails", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Log.Level = "verbose"
		require.Error(t, cfg.Validate())
	})
}
