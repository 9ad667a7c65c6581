// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. YTPICKER_LISTEN_ADDR.
const EnvPrefix = "YTPICKER"

// Config holds all application configuration for the picker backend.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `mapstructure:"listen_addr"`
	// APIKey is used when a request does not carry its own key.
	APIKey string `mapstructure:"api_key"`
	// ChannelID restricts queries to one channel when callers do not pass one.
	ChannelID string `mapstructure:"channel_id"`
	// YouTubeEndpoint overrides the Data API base URL (tests, proxies).
	YouTubeEndpoint string `mapstructure:"youtube_endpoint"`

	// Query defaults
	DefaultMaxResults int    `mapstructure:"default_max_results"`
	DefaultOrder      string `mapstructure:"default_order"`

	// Shorts classification
	ShortsStrategy    string        `mapstructure:"shorts_strategy"`
	ShortsScanLimit   int           `mapstructure:"shorts_scan_limit"`
	ShortsCacheTTL    time.Duration `mapstructure:"shorts_cache_ttl"`
	ShortsConcurrency int           `mapstructure:"shorts_concurrency"`

	// Field value format
	DataFormat         string `mapstructure:"data_format"`
	IncludeTags        bool   `mapstructure:"include_tags"`
	IncludeDescription bool   `mapstructure:"include_description"`

	// Response cache
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
	RedisURL        string        `mapstructure:"redis_url"`

	// Field storage
	StoreBackend string `mapstructure:"store_backend"`
	StorePath    string `mapstructure:"store_path"`

	// Upstream client
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	QuotaReserve      int           `mapstructure:"quota_reserve"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxClients        int           `mapstructure:"max_clients"`
	ClientIdleTTL     time.Duration `mapstructure:"client_idle_ttl"`

	// Retry settings
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`

	LogLevel string `mapstructure:"log_level"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:         ":8080",
		DefaultMaxResults:  25,
		DefaultOrder:       "date",
		ShortsStrategy:     "bulk",
		ShortsScanLimit:    500,
		ShortsCacheTTL:     10 * time.Minute,
		ShortsConcurrency:  4,
		DataFormat:         "simplified",
		IncludeTags:        true,
		IncludeDescription: true,
		CacheTTL:           30 * time.Second,
		CacheMaxEntries:    1000,
		StoreBackend:       "json",
		StorePath:          "ytpicker-fields.json",
		RequestsPerSecond:  5,
		QuotaReserve:       0,
		RequestTimeout:     15 * time.Second,
		MaxClients:         256,
		ClientIdleTTL:      30 * time.Minute,
		MaxRetries:         3,
		InitialBackoff:     250 * time.Millisecond,
		MaxBackoff:         5 * time.Second,
		BackoffMultiplier:  2.0,
		LogLevel:           "info",
	}
}

// Load loads configuration from the default search paths.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or from ytpicker.json in the
// current directory or ~/.config/ytpicker when path is empty. A missing
// config file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ytpicker")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ytpicker"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			log.Debug().Msg("config: no config file found, using env and defaults")
		case path != "" && errors.Is(err, os.ErrNotExist):
			log.Debug().Str("path", path).Msg("config: config file missing, using env and defaults")
		default:
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		log.Debug().Str("path", v.ConfigFileUsed()).Msg("config: loaded config file")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("channel_id", d.ChannelID)
	v.SetDefault("youtube_endpoint", d.YouTubeEndpoint)
	v.SetDefault("default_max_results", d.DefaultMaxResults)
	v.SetDefault("default_order", d.DefaultOrder)
	v.SetDefault("shorts_strategy", d.ShortsStrategy)
	v.SetDefault("shorts_scan_limit", d.ShortsScanLimit)
	v.SetDefault("shorts_cache_ttl", d.ShortsCacheTTL)
	v.SetDefault("shorts_concurrency", d.ShortsConcurrency)
	v.SetDefault("data_format", d.DataFormat)
	v.SetDefault("include_tags", d.IncludeTags)
	v.SetDefault("include_description", d.IncludeDescription)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("cache_max_entries", d.CacheMaxEntries)
	v.SetDefault("redis_url", d.RedisURL)
	v.SetDefault("store_backend", d.StoreBackend)
	v.SetDefault("store_path", d.StorePath)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("quota_reserve", d.QuotaReserve)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("max_clients", d.MaxClients)
	v.SetDefault("client_idle_ttl", d.ClientIdleTTL)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("initial_backoff", d.InitialBackoff)
	v.SetDefault("max_backoff", d.MaxBackoff)
	v.SetDefault("backoff_multiplier", d.BackoffMultiplier)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DefaultMaxResults < 1 || c.DefaultMaxResults > 50 {
		return fmt.Errorf("default_max_results must be between 1 and 50")
	}
	switch c.ShortsStrategy {
	case "bulk", "point":
	default:
		return fmt.Errorf("shorts_strategy must be \"bulk\" or \"point\", got %q", c.ShortsStrategy)
	}
	if c.ShortsScanLimit <= 0 {
		return fmt.Errorf("shorts_scan_limit must be positive")
	}
	if c.ShortsConcurrency <= 0 {
		return fmt.Errorf("shorts_concurrency must be positive")
	}
	switch c.DataFormat {
	case "simplified", "legacy":
	default:
		return fmt.Errorf("data_format must be \"simplified\" or \"legacy\", got %q", c.DataFormat)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be non-negative")
	}
	switch c.StoreBackend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store_backend must be \"json\" or \"sqlite\", got %q", c.StoreBackend)
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("max_clients must be positive")
	}
	if c.ClientIdleTTL < 0 {
		return fmt.Errorf("client_idle_ttl must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff <= 0 {
		return fmt.Errorf("max_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}
