// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Redis    RedisConfig             `yaml:"redis"`
	Queue    QueueConfig             `yaml:"queue"`
	Playback PlaybackConfig          `yaml:"playback"`
	Discord  DiscordConfig           `yaml:"discord"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr     string      `yaml:"addr" default:":8080"`
	Mode     string      `yaml:"mode" default:"release" validate:"oneof=debug release test"`
	APIToken string      `yaml:"api_token"`
	Hooks    HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// RedisConfig represents the backing store connection.
type RedisConfig struct {
	URL        string `yaml:"url" default:"redis://localhost:6379/0" validate:"required"`
	PoolSize   int    `yaml:"pool_size" default:"10" validate:"gte=1,lte=1000"`
	MaxRetries int    `yaml:"max_retries" default:"5" validate:"gte=1,lte=100"`
}

// QueueConfig represents queue state configuration.
type QueueConfig struct {
	KeyPrefix      string `yaml:"key_prefix" default:"guildqueue" validate:"required,excludesall=:{}"`
	RetentionHours int    `yaml:"retention_hours" default:"48" validate:"gte=1,lte=8760"`
	RelayEvents    bool   `yaml:"relay_events" default:"true"`
}

// PlaybackConfig represents playback engine configuration.
type PlaybackConfig struct {
	ProgressIntervalMs    int            `yaml:"progress_interval_ms" default:"5000" validate:"gte=100,lte=60000"`
	StartDelayMs          int            `yaml:"start_delay_ms" default:"0" validate:"gte=0,lte=5000"`
	NotificationTimeoutMs int            `yaml:"notification_timeout_ms" default:"500" validate:"gte=10,lte=30000"`
	Connect               map[string]any `yaml:"connect"`
}

// DiscordConfig represents the channel directory configuration.
type DiscordConfig struct {
	Token        string `yaml:"token"`
	RESTFallback bool   `yaml:"rest_fallback" default:"true"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	// Defaults go in first so explicit false/zero values in the file survive
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		c.Server.APIToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if slices.Contains(c.Server.Hooks.OnStarted, "") {
		return errors.New("server.hooks.on_started must not contain empty commands")
	}
	if slices.Contains(c.Server.Hooks.OnStopped, "") {
		return errors.New("server.hooks.on_stopped must not contain empty commands")
	}

	return nil
}

// Retention returns the queue retention period.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Queue.RetentionHours) * time.Hour
}

// ProgressInterval returns the player progress report interval.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Playback.ProgressIntervalMs) * time.Millisecond
}

// StartDelay returns the delay before a simulated track starts.
func (c *Config) StartDelay() time.Duration {
	return time.Duration(c.Playback.StartDelayMs) * time.Millisecond
}

// NotificationTimeout returns the per-subscriber delivery timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Playback.NotificationTimeoutMs) * time.Millisecond
}

// EventsChannel returns the pub/sub channel used by the event relay.
func (c *Config) EventsChannel() string {
	return c.Queue.KeyPrefix + ":events"
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
