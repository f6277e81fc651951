package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
}

func TestDefaults(t *testing.T) {
	emptyDir(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "config/channels.json", cfg.App.ChannelsFile)
	assert.Equal(t, StoreDriverCSV, cfg.Store.Driver)
	assert.Equal(t, LayoutPerChannel, cfg.Store.Layout)
	assert.Equal(t, SameDayAppend, cfg.Store.SameDay)
	assert.Empty(t, cfg.Store.SQLitePath, "sqlite file follows the data dir unless set")
	assert.Equal(t, 2, cfg.YouTube.MaxRetries)
	assert.True(t, cfg.YouTube.CacheHandles)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Error(t, cfg.RequireAPIKey())
}

func TestSourcesOverrideInOrder(t *testing.T) {
	emptyDir(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("store:\n  layout: shared\n  driver: sqlite\nyoutube:\n  max_retries: 0\n"), 0644))
	t.Setenv("STORE_DRIVER", "csv")
	t.Setenv("YOUTUBE_API_KEY", "k")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("same-day", "", "")
	flags.String("layout", "", "")
	require.NoError(t, flags.Parse([]string{"--same-day=skip"}))

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, LayoutShared, cfg.Store.Layout, "file value survives an unset flag")
	assert.Equal(t, StoreDriverCSV, cfg.Store.Driver, "env beats file")
	assert.Equal(t, SameDaySkip, cfg.Store.SameDay, "flag beats defaults")
	assert.Equal(t, 0, cfg.YouTube.MaxRetries)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestValidation(t *testing.T) {
	for env, value := range map[string]string{
		"STORE_DRIVER":            "postgres",
		"STORE_LAYOUT":            "nested",
		"STORE_SAME_DAY":          "upsert",
		"YOUTUBE_REQUEST_TIMEOUT": "0",
		"YOUTUBE_MAX_RETRIES":     "-1",
	} {
		t.Run(env, func(t *testing.T) {
			emptyDir(t)
			t.Setenv(env, value)
			_, err := LoadConfig(nil)
			assert.Error(t, err)
		})
	}
}

func TestTelegramEnabled(t *testing.T) {
	assert.False(t, TelegramConfig{BotToken: "t"}.Enabled())
	assert.True(t, TelegramConfig{BotToken: "t", ChatID: "-100"}.Enabled())
}
