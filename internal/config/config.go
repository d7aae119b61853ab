// Package config loads client and server settings from a YAML file,
// OFFSYNC_ environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/queue"
	"github.com/iudanet/offsync/internal/retry"
	"github.com/iudanet/offsync/internal/validation"
)

// EnvPrefix is the prefix of environment overrides, e.g. OFFSYNC_CLIENT_SERVER_URL.
const EnvPrefix = "OFFSYNC"

// Config is the complete configuration of both binaries.
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Retry  retry.Config `mapstructure:"retry"`
}

// ClientConfig configures the sync client.
type ClientConfig struct {
	DBPath        string        `mapstructure:"db_path"`
	ClientID      string        `mapstructure:"client_id"`
	ServerURL     string        `mapstructure:"server_url"`
	Adapter       string        `mapstructure:"adapter"`
	ProbeURL      string        `mapstructure:"probe_url"`
	Strategy      string        `mapstructure:"strategy"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	QueueSize     int           `mapstructure:"queue_size"`
	Compress      bool          `mapstructure:"compress"`
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	DBPath          string        `mapstructure:"db_path"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("client.db_path", "offsync-client.db")
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.adapter", string(adapter.KindHTTP))
	v.SetDefault("client.strategy", string(models.StrategyLastWriteWins))
	v.SetDefault("client.probe_interval", 30*time.Second)
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.queue_size", queue.DefaultMaxSize)
	v.SetDefault("client.compress", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "offsync-server.db")
	v.SetDefault("server.rate_limit", 300)
	v.SetDefault("server.rate_window", time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("retry.max_retries", retry.DefaultMaxRetries)
	v.SetDefault("retry.initial_delay", retry.DefaultInitialDelay)
	v.SetDefault("retry.max_delay", retry.DefaultMaxDelay)
	v.SetDefault("retry.multiplier", retry.DefaultMultiplier)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads path (when set) into v and decodes the result. A missing
// default config file is not an error; a missing explicit path is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".offsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := models.ParseStrategy(c.Client.Strategy); err != nil {
		return fmt.Errorf("client.strategy: %w", err)
	}
	if c.Client.ClientID != "" {
		if err := validation.ValidateID("client.client_id", c.Client.ClientID); err != nil {
			return err
		}
	}
	if c.Client.Adapter == "" {
		return errors.New("client.adapter is required")
	}
	if c.Client.Adapter == string(adapter.KindHTTP) && c.Client.ServerURL == "" {
		return errors.New("client.server_url is required for the http adapter")
	}
	if c.Client.QueueSize < 0 {
		return fmt.Errorf("client.queue_size must not be negative, got %d", c.Client.QueueSize)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %d", c.Server.RateLimit)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
