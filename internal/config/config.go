package config

import (
	"fmt"
	"os"
	"time"

	"bookmarkfeed/internal/bookmarks"
	"bookmarkfeed/internal/cache"
	"bookmarkfeed/internal/script"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Feed   FeedConfig   `toml:"feed"`
	Cache  CacheConfig  `toml:"cache"`
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
}

type FeedConfig struct {
	Account     string `toml:"account"`
	Tags        string `toml:"tags"`
	Count       int    `toml:"count"`
	CacheExpiry int    `toml:"cache_expiry"`
	Format      string `toml:"format"`
	BaseURL     string `toml:"base_url"`
}

type CacheConfig struct {
	Type            string `toml:"type"`
	Prefix          string `toml:"prefix"`
	CleanupInterval string `toml:"cleanup_interval"`
	Address         string `toml:"address"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	Path            string `toml:"path"`
}

type RenderConfig struct {
	Template      string `toml:"template"`
	FilterScript  string `toml:"filter_script"`
	FilterTimeout string `toml:"filter_timeout"`
	FilterUnsafe  bool   `toml:"filter_unsafe"`
}

type ServerConfig struct {
	Port      string `toml:"port"`
	FeedTitle string `toml:"feed_title"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var config Config
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default is the configuration used when no file exists: every default
// applied and no account, so rendering shows the not-configured message.
func Default() *Config {
	config := &Config{}
	_ = validateConfig(config)
	return config
}

func validateConfig(config *Config) error {
	if config.Feed.Account != "" && !bookmarks.ValidAccount(config.Feed.Account) {
		return fmt.Errorf("feed.account %q must be alphanumeric", config.Feed.Account)
	}

	if config.Feed.Count < 0 {
		return fmt.Errorf("feed.count must be a positive integer")
	}
	if config.Feed.Count == 0 {
		config.Feed.Count = bookmarks.DefaultCount
	}

	if config.Feed.CacheExpiry < 0 {
		return fmt.Errorf("feed.cache_expiry must be a positive integer")
	}
	if config.Feed.CacheExpiry == 0 {
		config.Feed.CacheExpiry = bookmarks.DefaultCacheTTL
	}

	switch config.Feed.Format {
	case "":
		config.Feed.Format = bookmarks.FormatJSON
	case bookmarks.FormatJSON, bookmarks.FormatRSS:
	default:
		return fmt.Errorf("unsupported feed.format: %s", config.Feed.Format)
	}

	if config.Feed.BaseURL == "" {
		config.Feed.BaseURL = bookmarks.DefaultBaseURL(config.Feed.Format)
	}

	switch config.Cache.Type {
	case "":
		config.Cache.Type = cache.TypeMemory
	case cache.TypeMemory, cache.TypeRedis, cache.TypeSQLite:
	default:
		return fmt.Errorf("unsupported cache.type: %s", config.Cache.Type)
	}

	if config.Cache.Prefix == "" {
		config.Cache.Prefix = "deliciousfeed"
	}

	if config.Cache.CleanupInterval == "" {
		config.Cache.CleanupInterval = "10m"
	}
	if _, err := time.ParseDuration(config.Cache.CleanupInterval); err != nil {
		return fmt.Errorf("invalid cache.cleanup_interval: %w", err)
	}

	if config.Cache.Type == cache.TypeRedis && config.Cache.Address == "" {
		config.Cache.Address = "localhost:6379"
	}

	if config.Cache.Type == cache.TypeSQLite && config.Cache.Path == "" {
		config.Cache.Path = "./bookmarkfeed.db"
	}

	if config.Render.FilterTimeout == "" {
		config.Render.FilterTimeout = "2s"
	}
	if d, err := time.ParseDuration(config.Render.FilterTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid render.filter_timeout: %q", config.Render.FilterTimeout)
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	return nil
}

// Params returns the fetch parameters for one render call.
func (c *Config) Params() bookmarks.Params {
	return bookmarks.Params{
		Account:  c.Feed.Account,
		Tags:     c.Feed.Tags,
		Count:    c.Feed.Count,
		CacheTTL: c.Feed.CacheExpiry,
	}
}

func (c *Config) CacheOptions() cache.Config {
	interval, _ := time.ParseDuration(c.Cache.CleanupInterval)
	return cache.Config{
		Type:            c.Cache.Type,
		Prefix:          c.Cache.Prefix,
		CleanupInterval: interval,
		Address:         c.Cache.Address,
		Password:        c.Cache.Password,
		DB:              c.Cache.DB,
		Path:            c.Cache.Path,
	}
}

func (c *Config) FilterOptions() script.FilterConfig {
	timeout, _ := time.ParseDuration(c.Render.FilterTimeout)
	return script.FilterConfig{
		Timeout: timeout,
		Unsafe:  c.Render.FilterUnsafe,
	}
}
