// Package config defines process configuration and its loading order.
//
// Conventions:
// - Defaults come from New; file and environment layers override them.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"ratingd/internal/domain/legacy"
	"ratingd/internal/domain/practice"
	"ratingd/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database file path.
	DBPath string `koanf:"db_path"`

	// WorkerCount sets the number of settlement workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory settlement queue.
	QueueSize int `koanf:"queue_size"`

	// ActivityURL is the base URL of the activity-tracker collaborator.
	ActivityURL string `koanf:"activity_url"`

	// FetchRPS and FetchBurst bound per-source calls to external judges.
	FetchRPS   float64 `koanf:"fetch_rps"`
	FetchBurst int     `koanf:"fetch_burst"`

	// MetricsAddr serves Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// Scoring holds contest score parameters.
	Scoring scoring.Config `koanf:"scoring"`

	// Practice holds monthly practice settlement parameters.
	Practice practice.Config `koanf:"practice"`

	// Legacy holds cross-season decay parameters.
	Legacy legacy.Config `koanf:"legacy"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		DBPath:      "ratingd.db",
		ActivityURL: "http://localhost:5000",
		WorkerCount: 4,
		QueueSize:   1024,
		FetchRPS:    0.5,
		FetchBurst:  1,
		Scoring:     scoring.DefaultConfig(),
		Practice:    practice.DefaultConfig(),
		Legacy:      legacy.DefaultConfig(),
	}
}
