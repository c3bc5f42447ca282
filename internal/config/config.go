// Package config provides configuration structures and loading for the
// crawler CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Client  ClientConfig  `yaml:"client" mapstructure:"client"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ClientConfig configures the AniList GraphQL client.
type ClientConfig struct {
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestInterval time.Duration `yaml:"request_interval" mapstructure:"request_interval"`
	PerPage         int           `yaml:"per_page" mapstructure:"per_page"`
	PagesPerQuery   int           `yaml:"pages_per_query" mapstructure:"pages_per_query"`
}

// RetryConfig configures retry behavior on transport errors.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
}

// CrawlConfig configures the ratings pipeline and user discovery.
type CrawlConfig struct {
	BatchSize       int `yaml:"batch_size" mapstructure:"batch_size"`
	CheckpointEvery int `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	UsersPerItem    int `yaml:"users_per_item" mapstructure:"users_per_item"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:        "https://graphql.anilist.co",
			UserAgent:       "anilist-crawler/0.1.0",
			Timeout:         30 * time.Second,
			RequestInterval: time.Second,
			PerPage:         50,
			PagesPerQuery:   5,
		},
		Retry: RetryConfig{
			MaxAttempts: 10,
			Interval:    60 * time.Second,
		},
		Crawl: CrawlConfig{
			BatchSize:       10,
			CheckpointEvery: 20,
			UsersPerItem:    100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given YAML file, layered over defaults,
// with ANILIST_* environment variables taking precedence. An empty path skips
// the file and uses defaults plus environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("ANILIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Register every key so AutomaticEnv can see it during Unmarshal.
	defaults := DefaultConfig()
	v.SetDefault("client.endpoint", defaults.Client.Endpoint)
	v.SetDefault("client.user_agent", defaults.Client.UserAgent)
	v.SetDefault("client.timeout", defaults.Client.Timeout)
	v.SetDefault("client.request_interval", defaults.Client.RequestInterval)
	v.SetDefault("client.per_page", defaults.Client.PerPage)
	v.SetDefault("client.pages_per_query", defaults.Client.PagesPerQuery)
	v.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("retry.interval", defaults.Retry.Interval)
	v.SetDefault("crawl.batch_size", defaults.Crawl.BatchSize)
	v.SetDefault("crawl.checkpoint_every", defaults.Crawl.CheckpointEvery)
	v.SetDefault("crawl.users_per_item", defaults.Crawl.UsersPerItem)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.pretty", defaults.Logging.Pretty)
	v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
