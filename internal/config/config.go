// Package config provides configuration loading for the bookdash server and
// the tunable scoring constants used by the search pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Providers ProvidersConfig `yaml:"providers"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Validate  ValidateConfig  `yaml:"validate"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the catalog database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ProvidersConfig holds per-provider client settings.
type ProvidersConfig struct {
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	RequestsPerDay    int           `yaml:"requests_per_day"`
	GoogleAPIKeyEnv   string        `yaml:"google_api_key_env"`
}

// ValidateConfig holds publication validator settings.
type ValidateConfig struct {
	MinConfidence   float64       `yaml:"min_confidence"`
	Budget          time.Duration `yaml:"budget"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	FilterBelowMin  *bool         `yaml:"filter_below_min"`
}

// FilterBelowMinOrDefault reports whether low-confidence candidates are
// dropped from results; defaults to true when unset.
func (v *ValidateConfig) FilterBelowMinOrDefault() bool {
	if v.FilterBelowMin != nil {
		return *v.FilterBelowMin
	}
	return true
}

// Load reads and parses the config file at path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/bookdash.db"
	}
	if cfg.Providers.RequestTimeout == 0 {
		cfg.Providers.RequestTimeout = 10 * time.Second
	}
	if cfg.Providers.MaxRetries == 0 {
		cfg.Providers.MaxRetries = 3
	}
	if cfg.Providers.RequestsPerMinute == 0 {
		cfg.Providers.RequestsPerMinute = 60
	}
	if cfg.Providers.RequestsPerDay == 0 {
		cfg.Providers.RequestsPerDay = 1000
	}
	if cfg.Providers.GoogleAPIKeyEnv == "" {
		cfg.Providers.GoogleAPIKeyEnv = "GOOGLE_BOOKS_API_KEY"
	}
	if cfg.Validate.MinConfidence == 0 {
		cfg.Validate.MinConfidence = 0.3
	}
	if cfg.Validate.Budget == 0 {
		cfg.Validate.Budget = 5 * time.Second
	}
	if cfg.Validate.MaxConcurrent == 0 {
		cfg.Validate.MaxConcurrent = 8
	}
	cfg.Scoring.ApplyDefaults()
}
