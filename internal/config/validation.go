package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate reports the first invalid setting of cfg.
func (cfg *Config) Validate() error {
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", cfg.Log.Format)
	}

	if cfg.Run.Tick <= 0 {
		return errors.New("run tick must be positive")
	}
	if cfg.Run.Timeout <= 0 {
		return errors.New("run timeout must be positive")
	}
	if cfg.Run.Timeout < cfg.Run.Tick {
		return fmt.Errorf("run timeout %s is shorter than the tick %s", cfg.Run.Timeout, cfg.Run.Tick)
	}

	switch cfg.NATS.Mode {
	case "off", "embedded":
	case "external":
		if cfg.NATS.URL == "" {
			return errors.New("nats url is required in external mode")
		}
	default:
		return fmt.Errorf("invalid nats mode: %s (must be one of: off, embedded, external)", cfg.NATS.Mode)
	}
	if strings.ContainsAny(cfg.NATS.Subject, " \t*>") {
		return fmt.Errorf("invalid nats subject prefix: %q", cfg.NATS.Subject)
	}

	return nil
}

// SlogLevel maps Level to a slog.Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Level)
	}

	return level, nil
}
