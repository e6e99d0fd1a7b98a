// Package config loads and validates the bookbinder daemon configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Library   LibraryConfig   `yaml:"library"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Exports   ExportsConfig   `yaml:"exports"`
	Events    EventsConfig    `yaml:"events"`
	Formats   FormatsConfig   `yaml:"formats"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings. Durations are strings in
// Go duration syntax ("10s"); zero values fall back to defaults.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ShutdownTimeoutDuration parses the shutdown timeout, defaulting to 10s.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(s.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// LibraryConfig points at the manuscript library on disk.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// ArtifactsConfig controls artifact storage and retention.
type ArtifactsConfig struct {
	Path          string `yaml:"path"`
	Retention     string `yaml:"retention"`
	SweepInterval string `yaml:"sweep_interval"`
}

// RetentionDuration parses the artifact retention window, defaulting to
// 24h. Zero disables the sweep entirely.
func (a ArtifactsConfig) RetentionDuration() time.Duration {
	if a.Retention == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(a.Retention)
	if err != nil || d < 0 {
		return 24 * time.Hour
	}
	return d
}

// SweepIntervalDuration parses the sweep cadence, defaulting to 1h.
func (a ArtifactsConfig) SweepIntervalDuration() time.Duration {
	if d, err := time.ParseDuration(a.SweepInterval); err == nil && d > 0 {
		return d
	}
	return time.Hour
}

// ExportsConfig sizes the export worker pool.
type ExportsConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

// EventsConfig configures the lifecycle event journal and optional fan-out.
type EventsConfig struct {
	DBPath  string `yaml:"db_path"`  // empty disables the journal
	NATSURL string `yaml:"nats_url"` // empty disables publishing
}

// FormatsConfig lets operators disable output formats at runtime.
type FormatsConfig struct {
	Disabled []string `yaml:"disabled"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Addr: ":8080", ShutdownTimeout: "10s"},
		Library:   LibraryConfig{Path: "./library"},
		Artifacts: ArtifactsConfig{Path: "./artifacts", Retention: "24h", SweepInterval: "1h"},
		Exports:   ExportsConfig{QueueSize: 100, Workers: 2},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from path, layering defaults underneath and
// BOOKBINDER_* environment variables on top. A missing file is not an
// error when path is empty; a named file that does not exist is.
func Load(path string) (*Config, error) {
	// Best effort; the daemon runs fine without a .env file.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers BOOKBINDER_* variables over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOOKBINDER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BOOKBINDER_LIBRARY_PATH"); v != "" {
		cfg.Library.Path = v
	}
	if v := os.Getenv("BOOKBINDER_ARTIFACTS_PATH"); v != "" {
		cfg.Artifacts.Path = v
	}
	if v := os.Getenv("BOOKBINDER_RETENTION"); v != "" {
		cfg.Artifacts.Retention = v
	}
	if v := os.Getenv("BOOKBINDER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Exports.Workers = n
		}
	}
	if v := os.Getenv("BOOKBINDER_EVENTS_DB"); v != "" {
		cfg.Events.DBPath = v
	}
	if v := os.Getenv("BOOKBINDER_NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := os.Getenv("BOOKBINDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks values the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Library.Path == "" {
		return fmt.Errorf("library.path must not be empty")
	}
	if c.Artifacts.Path == "" {
		return fmt.Errorf("artifacts.path must not be empty")
	}
	if c.Exports.QueueSize < 0 {
		return fmt.Errorf("exports.queue_size must not be negative")
	}
	if c.Exports.Workers < 0 {
		return fmt.Errorf("exports.workers must not be negative")
	}
	if c.Artifacts.Retention != "" {
		if _, err := time.ParseDuration(c.Artifacts.Retention); err != nil {
			return fmt.Errorf("artifacts.retention: %w", err)
		}
	}
	if c.Artifacts.SweepInterval != "" {
		if _, err := time.ParseDuration(c.Artifacts.SweepInterval); err != nil {
			return fmt.Errorf("artifacts.sweep_interval: %w", err)
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

const exampleConfig = `# bookbinder daemon configuration
server:
  addr: ":8080"
  shutdown_timeout: 10s

library:
  # Each project lives at <path>/<project-id>/ with a project.yaml
  # and a chapters/ directory of numbered markdown files.
  path: ./library

artifacts:
  path: ./artifacts
  retention: 24h
  sweep_interval: 1h

exports:
  queue_size: 100
  workers: 2

events:
  # Uncomment to journal job lifecycle events to sqlite.
  # db_path: ./bookbinder-events.db
  # Uncomment to publish lifecycle events to NATS.
  # nats_url: nats://localhost:4222

formats:
  # Format ids to disable at startup, e.g. [html].
  disabled: []

logging:
  level: info
`

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
