package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Filename is the default config file name.
const Filename = "recondash.yaml"

// Environment overrides, loaded from the process environment or a
// .env file next to the config.
const (
	EnvAPIURL         = "RECONDASH_API_URL"
	EnvAPITimeoutSecs = "RECONDASH_API_TIMEOUT_SECONDS"
)

// Config represents the top-level recondash.yaml configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Poll   PollConfig   `yaml:"poll"`
	List   ListConfig   `yaml:"list"`
	Search SearchConfig `yaml:"search"`
	Log    LogConfig    `yaml:"log"`
}

// APIConfig points at the reconciliation backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PollConfig controls batch progress polling.
type PollConfig struct {
	IntervalMS           int `yaml:"interval_ms"`
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors"`
}

// ListConfig controls transaction list fetching.
type ListConfig struct {
	PageSize int `yaml:"page_size"`
}

// SearchConfig controls the manual-match invoice lookup.
type SearchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
	Limit      int `yaml:"limit"`
}

// LogConfig controls the local action log.
type LogConfig struct {
	Dir string `yaml:"dir"`
}

// Timeout returns the API request timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Interval returns the poll interval.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// Debounce returns the search debounce window.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Load reads a recondash.yaml file from disk, then applies environment
// overrides. A .env file in the current directory is honored when
// present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPITimeoutSecs); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvAPITimeoutSecs, v, err)
		}
		c.API.TimeoutSeconds = secs
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new setup.
func Default(baseURL string) *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        baseURL,
			TimeoutSeconds: 30,
		},
		Poll: PollConfig{
			IntervalMS:           2000,
			MaxConsecutiveErrors: 3,
		},
		List: ListConfig{
			PageSize: 50,
		},
		Search: SearchConfig{
			DebounceMS: 300,
			Limit:      10,
		},
		Log: LogConfig{
			Dir: ".recondash",
		},
	}
}
