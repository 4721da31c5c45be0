// Package config loads engine settings from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/phi-engine/internal/cache"
	"github.com/danielpatrickdp/phi-engine/internal/dist"
)

// #region config

// Config holds the tunable settings of an analysis run.
type Config struct {
	DBPath     string  `yaml:"db_path"`     // sqlite file for the persistent cache and analysis log
	CacheBytes int64   `yaml:"cache_bytes"` // in-memory memoization budget
	Workers    int     `yaml:"workers"`     // parallel partition evaluations
	Precision  float64 `yaml:"precision"`   // phi comparison tolerance
}

// Default returns the built-in settings: a local database file, half the
// available memory for the cache, one worker per CPU.
func Default() Config {
	return Config{
		DBPath:     "phi.db",
		CacheBytes: cache.DefaultBudget(),
		Workers:    runtime.NumCPU(),
		Precision:  dist.Tolerance,
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DBPath = envOr("PHI_DB", c.DBPath)
	if v := os.Getenv("PHI_CACHE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PHI_CACHE_BYTES: %w", err)
		}
		c.CacheBytes = n
	}
	if v := os.Getenv("PHI_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PHI_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("PHI_PRECISION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PHI_PRECISION: %w", err)
		}
		c.Precision = f
	}
	return nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.CacheBytes < 0 {
		return fmt.Errorf("cache_bytes must not be negative, got %d", c.CacheBytes)
	}
	if c.Precision <= 0 {
		return fmt.Errorf("precision must be positive, got %v", c.Precision)
	}
	return nil
}

// #endregion config

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
