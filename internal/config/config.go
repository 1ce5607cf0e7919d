// Package config loads the configuration of the rxdemo scenario runner.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Run     RunConfig     `yaml:"run"`
	Metrics MetricsConfig `yaml:"metrics"`
	NATS    NATSConfig    `yaml:"nats"`
}

// LogConfig configures the slog handler of the runner.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

// RunConfig selects and paces the scenarios.
type RunConfig struct {
	Scenarios []string      `yaml:"scenarios"` // Empty runs the whole catalog
	Tick      time.Duration `yaml:"tick"`      // Base period of timed scenarios, e.g. "100ms"
	Timeout   time.Duration `yaml:"timeout"`   // Per scenario, e.g. "10s"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Listen    string `yaml:"listen"`    // ":9090"; empty disables the /metrics endpoint
	Namespace string `yaml:"namespace"` // Metric namespace, e.g. "rxdemo"
}

// NATSConfig configures publishing of scenario emissions to NATS.
type NATSConfig struct {
	Mode    string `yaml:"mode"`    // "off", "embedded", "external"
	URL     string `yaml:"url"`     // "nats://localhost:4222", external mode only
	Subject string `yaml:"subject"` // Prefix; the scenario name is appended
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)

	return &cfg
}

// Load loads configuration from a YAML file.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded configuration with defaults applied
//   - error: Error if file cannot be read, parsed or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
