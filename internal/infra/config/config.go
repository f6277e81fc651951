package config

// Application configuration.
// Sources, lowest priority first:
// 1. defaults
// 2. config.yaml in the working directory
// 3. .env file
// 4. environment variables (see setupEnvAliases)
// 5. command-line flags bound from the cobra command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreDriverCSV    = "csv"
	StoreDriverSQLite = "sqlite"

	LayoutPerChannel = "per-channel"
	LayoutShared     = "shared"

	SameDayAppend = "append"
	SameDaySkip   = "skip"
)

type Config struct {
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	App      AppConfig      `mapstructure:"app"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type YouTubeConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestTimeout    int     `mapstructure:"request_timeout"` // seconds
	MaxRetries        int     `mapstructure:"max_retries"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	CacheHandles      bool    `mapstructure:"cache_handles"`
}

type AppConfig struct {
	ChannelsFile string `mapstructure:"channels_file"`
	DataDir      string `mapstructure:"data_dir"`
	GraphsDir    string `mapstructure:"graphs_dir"`
	LogsDir      string `mapstructure:"logs_dir"`
	Debug        bool   `mapstructure:"debug"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	Layout     string `mapstructure:"layout"`
	SQLitePath string `mapstructure:"sqlite_path"`
	SameDay    string `mapstructure:"same_day"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type ScheduleConfig struct {
	Time     string `mapstructure:"time"` // HH:MM
	Timezone string `mapstructure:"timezone"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendCharts bool   `mapstructure:"send_charts"`
}

// Enabled reports whether both the token and the target chat are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// LoadConfig merges every source into a Config. flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setupEnvAliases(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("youtube.api_key", "YOUTUBE_API_KEY")
	v.BindEnv("youtube.base_url", "YOUTUBE_BASE_URL")
	v.BindEnv("youtube.request_timeout", "YOUTUBE_REQUEST_TIMEOUT")
	v.BindEnv("youtube.max_retries", "YOUTUBE_MAX_RETRIES")

	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.request_timeout", 30)
	v.SetDefault("youtube.max_retries", 2)
	v.SetDefault("youtube.requests_per_second", 5.0)
	v.SetDefault("youtube.cache_handles", true)

	v.SetDefault("app.channels_file", "config/channels.json")
	v.SetDefault("app.data_dir", "data")
	v.SetDefault("app.graphs_dir", "graphs")
	v.SetDefault("app.logs_dir", "logs")
	v.SetDefault("app.debug", false)

	v.SetDefault("store.driver", StoreDriverCSV)
	v.SetDefault("store.layout", LayoutPerChannel)
	v.SetDefault("store.sqlite_path", "") // empty: <data_dir>/stats.db
	v.SetDefault("store.same_day", SameDayAppend)

	v.SetDefault("server.addr", ":8501")

	v.SetDefault("schedule.time", "09:00")
	v.SetDefault("schedule.timezone", "UTC")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.send_charts", false)
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"channels":    "app.channels_file",
	"data-dir":    "app.data_dir",
	"graphs-dir":  "app.graphs_dir",
	"logs-dir":    "app.logs_dir",
	"debug":       "app.debug",
	"store":       "store.driver",
	"layout":      "store.layout",
	"sqlite-path": "store.sqlite_path",
	"same-day":    "store.same_day",
	"addr":        "server.addr",
	"at":          "schedule.time",
	"timezone":    "schedule.timezone",
	"send-charts": "telegram.send_charts",
}

// bindFlags binds only the flags the command actually defines, so an unset flag
// never shadows a value from the file or the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Store.Driver {
	case StoreDriverCSV, StoreDriverSQLite:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StoreDriverCSV, StoreDriverSQLite, cfg.Store.Driver)
	}

	switch cfg.Store.Layout {
	case LayoutPerChannel, LayoutShared:
	default:
		return fmt.Errorf("store.layout must be %q or %q, got %q", LayoutPerChannel, LayoutShared, cfg.Store.Layout)
	}

	switch cfg.Store.SameDay {
	case SameDayAppend, SameDaySkip:
	default:
		return fmt.Errorf("store.same_day must be %q or %q, got %q", SameDayAppend, SameDaySkip, cfg.Store.SameDay)
	}

	if cfg.YouTube.RequestTimeout <= 0 {
		return fmt.Errorf("youtube.request_timeout must be positive")
	}
	if cfg.YouTube.MaxRetries < 0 {
		return fmt.Errorf("youtube.max_retries must not be negative")
	}
	return nil
}

// RequireAPIKey is checked by the commands that call the YouTube API.
func (c *Config) RequireAPIKey() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is not set (env YOUTUBE_API_KEY or youtube.api_key in config.yaml)")
	}
	return nil
}
