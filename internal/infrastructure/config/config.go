package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress   string        `mapstructure:"server_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Storage  StorageConfig  `mapstructure:"storage"`
	Content  ContentConfig  `mapstructure:"content"`
	Log      LogConfig      `mapstructure:"log"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
	Events   EventsConfig   `mapstructure:"events"`

	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	JanitorInterval time.Duration   `mapstructure:"janitor_interval"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // memory, sqlite or redis
	Namespace  string `mapstructure:"namespace"`
	SQLitePath string `mapstructure:"sqlite_path"`
	QuotaBytes int64  `mapstructure:"quota_bytes"`

	RedisAddress  string `mapstructure:"redis_address"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type ContentConfig struct {
	BaseURL string        `mapstructure:"base_url"` // e.g. "http://localhost:3000"
	Dir     string        `mapstructure:"dir"`      // local directory containing data/
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type AutosaveConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_address", "127.0.0.1:8080")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.namespace", "lid")
	v.SetDefault("storage.sqlite_path", "trainer.db")
	// browsers grant roughly 5 MB of local storage per origin
	v.SetDefault("storage.quota_bytes", 5*1024*1024)
	v.SetDefault("storage.redis_address", "localhost:6379")
	v.SetDefault("storage.redis_db", 0)

	v.SetDefault("content.base_url", "")
	v.SetDefault("content.dir", "public")
	v.SetDefault("content.workers", 4)
	v.SetDefault("content.timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/trainer.log")

	v.SetDefault("autosave.interval", "30s")
	v.SetDefault("autosave.debounce", "2s")

	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "trainer-events")

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("janitor_interval", "1m")
	v.SetDefault("allowed_origins", []string{"*"})
}

// Load reads configuration from an optional config.yaml in path, a .env file
// and LID_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix("LID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("config: storage.backend=%q must be memory, sqlite or redis", c.Storage.Backend)
	}
	if c.Content.BaseURL == "" && c.Content.Dir == "" {
		return fmt.Errorf("config: one of content.base_url or content.dir is required")
	}
	if c.Content.Workers < 1 {
		return fmt.Errorf("config: content.workers=%d must be at least 1", c.Content.Workers)
	}
	if c.Autosave.Interval <= 0 || c.Autosave.Debounce <= 0 {
		return fmt.Errorf("config: autosave interval and debounce must be positive")
	}
	return nil
}
