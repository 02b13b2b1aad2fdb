package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// TomlServer holds HTTP server settings
type TomlServer struct {
	Addr  string `toml:"addr"`
	Debug bool   `toml:"debug"`
}

// TomlFetcher holds settings for the per-source feed fetcher
type TomlFetcher struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	UserAgent      string `toml:"user_agent"`
}

// TomlPipeline holds aggregation pipeline settings
type TomlPipeline struct {
	WindowDays      int `toml:"window_days"`
	DefaultPageSize int `toml:"default_page_size"`
}

// TomlFeed represents a seed feed source
type TomlFeed struct {
	Name        string `toml:"name"`
	URL         string `toml:"url"`
	Category    string `toml:"category"`
	Description string `toml:"description"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Database string       `toml:"database"`
	LogLevel string       `toml:"log_level"`
	Server   TomlServer   `toml:"server"`
	Fetcher  TomlFetcher  `toml:"fetcher"`
	Pipeline TomlPipeline `toml:"pipeline"`
	Feeds    []TomlFeed   `toml:"feeds"`
}

func (c *TomlConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}

// Default returns the configuration used when no config file is given.
func Default() *TomlConfig {
	return &TomlConfig{
		Database: "newsfeed.db",
		LogLevel: "info",
		Server:   TomlServer{Addr: ":5000"},
		Fetcher: TomlFetcher{
			TimeoutSeconds: 10,
			MaxRetries:     2,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		Pipeline: TomlPipeline{
			WindowDays:      10,
			DefaultPageSize: 10,
		},
	}
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}
