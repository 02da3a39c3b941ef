// Package config loads runtime configuration for the agrisync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with --config/-c. Files ending in .yaml
//     or .yml are YAML, anything else is JSON.
//  3. Command-line flags that were set explicitly.
//
// # File format
//
// Durations use timex.Duration, so they can be strings like "5s" or integer
// nanoseconds. Every key is optional:
//
//	{
//	  "api_base_url": "http://127.0.0.1:3000/api",
//	  "db_path": "agrisync.db",
//	  "network_poll_interval": "5s",
//	  "history_fresh_for": "5m",
//	  "offline_stub_delay": "2s",
//	  "request_timeout": "0s",
//	  "force_offline": false,
//	  "log_level": "info",
//	  "log_backend": "slog"
//	}
//
// Note: This package does not read environment variables.
package config
