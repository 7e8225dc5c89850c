// Package config defines process configuration and its loading.
//
// Conventions:
// - Defaults live in New(); Load() layers a YAML file and the environment on top.
// - Sections mirror the YAML layout: riot, scrape, data, metrics.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	Riot    RiotConfig    `koanf:"riot"`
	Scrape  ScrapeConfig  `koanf:"scrape"`
	Data    DataConfig    `koanf:"data"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// RiotConfig holds upstream API credentials and transport settings.
type RiotConfig struct {
	// Token is the API key sent as X-Riot-Token. Prefer TFT_RIOT__TOKEN or .env.
	Token string `koanf:"token"`

	// Timeout bounds a single upstream request.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries bounds retries of transport failures. HTTP statuses are never retried.
	MaxRetries int `koanf:"max_retries"`
}

// ScrapeConfig drives the league crawler.
type ScrapeConfig struct {
	Region   string   `koanf:"region"`
	CacheDir string   `koanf:"cache_dir"`
	Leagues  []string `koanf:"leagues"`

	// Sleep is the minimum number of seconds between two upstream calls.
	Sleep float64 `koanf:"sleep"`

	// RateLimits adds token buckets on top of Sleep, e.g. 20 per 1s and 100 per 2m.
	RateLimits []RateLimit `koanf:"rate_limits"`

	// RefreshLeagues purges cached league listings before a crawl.
	RefreshLeagues bool `koanf:"refresh_leagues"`

	// DedupeMatches skips match ids already queued in the same crawl.
	DedupeMatches bool `koanf:"dedupe_matches"`

	// Regions extends or overrides the built-in routing table.
	Regions map[string]RegionConfig `koanf:"regions"`
}

// RateLimit is one bucket: Requests per Per.
type RateLimit struct {
	Requests int           `koanf:"requests"`
	Per      time.Duration `koanf:"per"`
}

// RegionConfig is a routing pair for a region code.
type RegionConfig struct {
	Platform string `koanf:"platform"`
	Gateway  string `koanf:"gateway"`
}

// DataConfig drives export and load.
type DataConfig struct {
	Dir        string `koanf:"dir"`
	DaysCutoff int    `koanf:"days_cutoff"`
	SetFilter  string `koanf:"set_filter"`

	// Workers bounds parallel decoding of cached match files.
	Workers int `koanf:"workers"`
}

// MetricsConfig controls metric exposition. Both are optional.
type MetricsConfig struct {
	// Addr serves /metrics while a command runs, e.g. ":9108".
	Addr string `koanf:"addr"`

	// Textfile receives the registry after a command, for node_exporter.
	Textfile string `koanf:"textfile"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Riot: RiotConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 2,
		},
		Scrape: ScrapeConfig{
			Region:         "NA",
			CacheDir:       "cache",
			Sleep:          1,
			RefreshLeagues: true,
			DedupeMatches:  true,
		},
		Data: DataConfig{
			Dir:        "data",
			DaysCutoff: 7,
			Workers:    runtime.NumCPU(),
		},
	}
}

// SleepDuration returns Sleep as a time.Duration.
func (s ScrapeConfig) SleepDuration() time.Duration {
	return time.Duration(s.Sleep * float64(time.Second))
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Scrape.CacheDir) == "":
		return fmt.Errorf("%w: scrape.cache_dir must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.Data.Dir) == "":
		return fmt.Errorf("%w: data.dir must not be empty", ErrInvalidConfig)
	case c.Scrape.Sleep < 0:
		return fmt.Errorf("%w: scrape.sleep must not be negative", ErrInvalidConfig)
	case c.Data.DaysCutoff < 0:
		return fmt.Errorf("%w: data.days_cutoff must not be negative", ErrInvalidConfig)
	case c.Riot.MaxRetries < 0:
		return fmt.Errorf("%w: riot.max_retries must not be negative", ErrInvalidConfig)
	}
	for i, rl := range c.Scrape.RateLimits {
		if rl.Requests <= 0 || rl.Per <= 0 {
			return fmt.Errorf("%w: scrape.rate_limits[%d] needs positive requests and per", ErrInvalidConfig, i)
		}
	}
	return nil
}

// ValidateScrape checks the settings the crawler needs on top of Validate.
func (c *Config) ValidateScrape() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Riot.Token) == "" {
		return fmt.Errorf("%w: riot.token must be set", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Scrape.Region) == "" {
		return fmt.Errorf("%w: scrape.region must be set", ErrInvalidConfig)
	}
	if len(c.Scrape.Leagues) == 0 {
		return fmt.Errorf("%w: scrape.leagues must list at least one league", ErrInvalidConfig)
	}
	return nil
}
