package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/agriai/agrisync/internal/logging"
)

// Config holds runtime settings for the agrisync CLI.
//
// Durations are time.Duration; in files they may be written as "5s" strings
// or integer nanoseconds.
type Config struct {
	APIBaseURL          string
	DBPath              string
	NetworkPollInterval time.Duration
	HistoryFreshFor     time.Duration
	OfflineStubDelay    time.Duration
	// RequestTimeout of zero leaves the HTTP transport defaults in place.
	RequestTimeout time.Duration
	ForceOffline   bool
	LogLevel       string
	LogBackend     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:3000/api"
	c.DBPath = "agrisync.db"
	c.NetworkPollInterval = 5 * time.Second
	c.HistoryFreshFor = 5 * time.Minute
	c.OfflineStubDelay = 2 * time.Second
	c.RequestTimeout = 0
	c.ForceOffline = false
	c.LogLevel = "info"
	c.LogBackend = logging.BackendSlog
}

// Default returns a Config with defaults applied.
func Default() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.NetworkPollInterval <= 0 {
		return fmt.Errorf("network_poll_interval must be positive, got %s", c.NetworkPollInterval)
	}
	for name, d := range map[string]time.Duration{
		"history_fresh_for":  c.HistoryFreshFor,
		"offline_stub_delay": c.OfflineStubDelay,
		"request_timeout":    c.RequestTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	switch c.LogBackend {
	case logging.BackendSlog, logging.BackendZap:
	default:
		return fmt.Errorf("log_backend must be %q or %q, got %q", logging.BackendSlog, logging.BackendZap, c.LogBackend)
	}
	return nil
}

// Load builds a Config from defaults, then the file at path (if not empty),
// then the flags in overrides that were set explicitly. Later sources take
// precedence.
func Load(path string, overrides FlagSource) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if overrides != nil {
		if err := cfg.ApplyFlags(overrides); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
