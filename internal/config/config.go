// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

// PlaceholderAPIKey is used when FIRECRAWL_API_KEY is unset. Requests made
// with it reach the provider and fail there.
const PlaceholderAPIKey = "YOUR_FIRECRAWL_API_KEY"

// APIKeyEnv is the environment variable holding the provider API key.
const APIKeyEnv = "FIRECRAWL_API_KEY"

// Ledger and event backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendPubSub   = "pubsub"
	BackendNone     = "none"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Firecrawl FirecrawlConfig `mapstructure:"firecrawl"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FirecrawlConfig points the provider client at the API.
type FirecrawlConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DefaultsConfig holds the options applied when a request has none.
type DefaultsConfig struct {
	Formats         []string `mapstructure:"formats"`
	OnlyMainContent bool     `mapstructure:"only_main_content"`
	CrawlLimit      int      `mapstructure:"crawl_limit"`
	CrawlMaxDepth   int      `mapstructure:"crawl_max_depth"`
}

// LedgerConfig selects where job handles are remembered.
type LedgerConfig struct {
	Provider      string `mapstructure:"provider"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	RedisTTLHours int    `mapstructure:"redis_ttl_hours"`
}

// EventsConfig selects where job events are published.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FCDEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("firecrawl.api_key", APIKeyEnv); err != nil {
		return Config{}, fmt.Errorf("bind %s: %w", APIKeyEnv, err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(cfg.Firecrawl.APIKey) == "" {
		cfg.Firecrawl.APIKey = PlaceholderAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 0)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev")
	v.SetDefault("firecrawl.timeout_seconds", 0)
	v.SetDefault("defaults.formats", []string{"markdown"})
	v.SetDefault("defaults.only_main_content", true)
	v.SetDefault("defaults.crawl_limit", 10)
	v.SetDefault("defaults.crawl_max_depth", 2)
	v.SetDefault("ledger.provider", BackendMemory)
	v.SetDefault("ledger.postgres_table", "firecrawl_jobs")
	v.SetDefault("ledger.redis_addr", "localhost:6379")
	v.SetDefault("ledger.redis_prefix", "firecrawl:job:")
	v.SetDefault("ledger.redis_ttl_hours", 24)
	v.SetDefault("events.provider", BackendMemory)
	v.SetDefault("events.topic", "firecrawl-jobs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. The provider API
// key itself is not checked.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return errors.New("server.request_timeout_seconds must be >= 0")
	}
	if c.Firecrawl.TimeoutSeconds < 0 {
		return errors.New("firecrawl.timeout_seconds must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return errors.New("auth.api_key must be set when auth is enabled")
	}
	switch c.Ledger.Provider {
	case BackendMemory, "":
	case BackendPostgres:
		if c.Ledger.PostgresDSN == "" {
			return errors.New("ledger.postgres_dsn must be set when ledger.provider is postgres")
		}
	case BackendRedis:
		if c.Ledger.RedisAddr == "" {
			return errors.New("ledger.redis_addr must be set when ledger.provider is redis")
		}
	default:
		return fmt.Errorf("unknown ledger.provider %q", c.Ledger.Provider)
	}
	switch c.Events.Provider {
	case BackendMemory, BackendNone, "":
	case BackendPubSub:
		if c.Events.ProjectID == "" || c.Events.Topic == "" {
			return errors.New("events.project_id and events.topic must be set when events.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown events.provider %q", c.Events.Provider)
	}
	return nil
}

// UsingPlaceholderKey reports whether the provider key fell back to the
// placeholder.
func (c Config) UsingPlaceholderKey() bool {
	return c.Firecrawl.APIKey == "" || c.Firecrawl.APIKey == PlaceholderAPIKey
}

// ProviderTimeout converts firecrawl.timeout_seconds into a duration.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Firecrawl.TimeoutSeconds) * time.Second
}

// RequestTimeout converts server.request_timeout_seconds into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ScrapeDefaults maps the defaults section onto scraper.Defaults.
func (c Config) ScrapeDefaults() scraper.Defaults {
	formats := make([]string, len(c.Defaults.Formats))
	copy(formats, c.Defaults.Formats)
	return scraper.Defaults{
		Formats:         formats,
		OnlyMainContent: c.Defaults.OnlyMainContent,
		CrawlLimit:      c.Defaults.CrawlLimit,
		CrawlMaxDepth:   c.Defaults.CrawlMaxDepth,
	}
}
