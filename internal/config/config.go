// Package config holds the explicit, passed-in configuration for inquest.
// There is no process-wide singleton: whoever opens the store constructs a
// Config and hands it down.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides, applied after any config file.
const (
	EnvStoragePath       = "INQUEST_STORAGE_PATH"
	EnvMaxInvestigations = "INQUEST_MAX_INVESTIGATIONS"
)

// Config is everything the application consumes from its environment. The
// storage engine itself needs only StoragePath and MaxInvestigations.
type Config struct {
	StoragePath       string
	MaxInvestigations int
	LockTimeout       time.Duration
	LockStaleAfter    time.Duration
	LogLevel          string
	LogFormat         string // "text" or "json"
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		StoragePath:       filepath.Join(".inquest", "storage"),
		MaxInvestigations: 100,
		LockTimeout:       5 * time.Second,
		LockStaleAfter:    30 * time.Second,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// fileConfig is the YAML shape: durations are strings ("5s", "1m") because
// yaml.v3 has no native time.Duration decoding.
type fileConfig struct {
	StoragePath       string `yaml:"storage_path"`
	MaxInvestigations int    `yaml:"max_investigations"`
	LockTimeout       string `yaml:"lock_timeout"`
	LockStaleAfter    string `yaml:"lock_stale_after"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
}

// LoadFile reads a YAML config file and merges it over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	if fc.StoragePath != "" {
		cfg.StoragePath = fc.StoragePath
	}
	if fc.MaxInvestigations != 0 {
		cfg.MaxInvestigations = fc.MaxInvestigations
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.LockTimeout != "" {
		if cfg.LockTimeout, err = time.ParseDuration(fc.LockTimeout); err != nil {
			return cfg, fmt.Errorf("parse lock_timeout: %w", err)
		}
	}
	if fc.LockStaleAfter != "" {
		if cfg.LockStaleAfter, err = time.ParseDuration(fc.LockStaleAfter); err != nil {
			return cfg, fmt.Errorf("parse lock_stale_after: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv overlays recognized environment variables onto cfg.
func (cfg *Config) ApplyEnv() error {
	if v := os.Getenv(EnvStoragePath); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv(EnvMaxInvestigations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: %q is not a positive integer", EnvMaxInvestigations, v)
		}
		cfg.MaxInvestigations = n
	}
	return nil
}

// Validate rejects configurations the store cannot run with.
func (cfg Config) Validate() error {
	if cfg.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if cfg.MaxInvestigations <= 0 {
		return fmt.Errorf("max_investigations must be positive, got %d", cfg.MaxInvestigations)
	}
	return nil
}
