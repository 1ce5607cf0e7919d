package config

import "time"

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Run.Tick == 0 {
		cfg.Run.Tick = 100 * time.Millisecond
	}
	if cfg.Run.Timeout == 0 {
		cfg.Run.Timeout = 10 * time.Second
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "rxdemo"
	}

	if cfg.NATS.Mode == "" {
		cfg.NATS.Mode = "off"
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "rxdemo.emissions"
	}
}
