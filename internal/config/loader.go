package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if RATINGD_CONFIG is set
//  3. env (prefix RATINGD_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("RATINGD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadError(err)
		}
	}

	// Environment variables: RATINGD_DB_PATH, RATINGD_WORKER_COUNT, ...
	// Map env keys like RATINGD_WORKER_COUNT -> worker_count (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("RATINGD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ratingd_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadError(err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadError(err)
	}

	return &cfg, cfg.validate()
}

// validate rejects values the service cannot run with.
func (c *Config) validate() error {
	if c.DBPath == "" {
		return invalidError("db_path must not be empty")
	}
	if c.WorkerCount < 1 {
		return invalidError("worker_count must be at least 1")
	}
	if c.QueueSize < 1 {
		return invalidError("queue_size must be at least 1")
	}
	if c.FetchRPS <= 0 {
		return invalidError("fetch_rps must be positive")
	}
	return nil
}
