// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package config loads the Yomistats configuration with Koanf v2 layered
// sources: built-in defaults, then an optional YAML config file, then
// environment variables (highest priority).
//
// Environment variables map to nested keys by underscore splitting on the
// first segment: DATABASE_PATH -> database.path, STATS_AFK_GAP_SECONDS ->
// stats.afk_gap_seconds.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/yomistats/config.yaml",
	"/etc/yomistats/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Stats     StatsConfig     `koanf:"stats"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig tunes the embedded DuckDB instance.
type DatabaseConfig struct {
	Path                   string `koanf:"path" validate:"required"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads" validate:"gte=0"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// StatsConfig holds the session-model tunables of the activity analyzer.
// Both gaps are user-tunable but bounded; wildly large values would make
// every idle night count as reading time.
type StatsConfig struct {
	AFKGapSeconds     float64 `koanf:"afk_gap_seconds" validate:"gte=5,lte=3600"`
	SessionGapSeconds float64 `koanf:"session_gap_seconds" validate:"gte=30,lte=21600"`
}

// SchedulerConfig tunes the periodic job scheduler.
type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	PollInterval time.Duration `koanf:"poll_interval" validate:"gte=1s,lte=1h"`
	// RunAtHour is the local hour used by weekly/monthly/yearly schedules.
	RunAtHour int `koanf:"run_at_hour" validate:"gte=0,lte=23"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and env.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/yomistats.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		Stats: StatsConfig{
			AFKGapSeconds:     120,
			SessionGapSeconds: 600,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			PollInterval: time.Minute,
			RunAtHour:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks bounds on all tunables.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	// The AFK cap must not exceed the session boundary, or a "capped"
	// gap could outlive the session it belongs to.
	if c.Stats.AFKGapSeconds > c.Stats.SessionGapSeconds {
		return fmt.Errorf("stats.afk_gap_seconds (%v) must not exceed stats.session_gap_seconds (%v)",
			c.Stats.AFKGapSeconds, c.Stats.SessionGapSeconds)
	}
	return nil
}

// findConfigFile returns the first existing config path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// knownSections are the top-level config keys; env vars outside them are
// ignored rather than polluting the tree.
var knownSections = map[string]struct{}{
	"database": {}, "stats": {}, "scheduler": {}, "logging": {},
}

// envTransform maps DATABASE_PATH -> database.path, STATS_AFK_GAP_SECONDS
// -> stats.afk_gap_seconds. Returning "" drops the variable.
func envTransform(key string) string {
	key = strings.ToLower(key)
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return ""
	}
	if _, ok := knownSections[section]; !ok {
		return ""
	}
	return section + "." + rest
}
