package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Flag names shared by RegisterFlags and ApplyFlags.
const (
	FlagConfig         = "config"
	FlagAPIURL         = "api-url"
	FlagDBPath         = "db"
	FlagPollInterval   = "poll-interval"
	FlagFreshFor       = "fresh-for"
	FlagStubDelay      = "stub-delay"
	FlagRequestTimeout = "request-timeout"
	FlagOffline        = "offline"
	FlagLogLevel       = "log-level"
	FlagLogBackend     = "log-backend"
)

// FlagSource is the part of *pflag.FlagSet ApplyFlags reads.
type FlagSource interface {
	Changed(name string) bool
	GetString(name string) (string, error)
	GetDuration(name string) (time.Duration, error)
	GetBool(name string) (bool, error)
}

// RegisterFlags adds the configuration flags to fs with defaults shown in
// help. Values are only applied by ApplyFlags, after the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP(FlagConfig, "c", "", "path to a JSON or YAML config file")
	fs.String(FlagAPIURL, d.APIBaseURL, "base URL of the diagnosis API")
	fs.String(FlagDBPath, d.DBPath, "path to the local SQLite database")
	fs.Duration(FlagPollInterval, d.NetworkPollInterval, "network state poll interval")
	fs.Duration(FlagFreshFor, d.HistoryFreshFor, "how long a reconciled history view is served without refresh")
	fs.Duration(FlagStubDelay, d.OfflineStubDelay, "simulated latency of the offline prediction stub")
	fs.Duration(FlagRequestTimeout, d.RequestTimeout, "HTTP request timeout (0 keeps transport defaults)")
	fs.Bool(FlagOffline, d.ForceOffline, "treat the device as offline regardless of network state")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(FlagLogBackend, d.LogBackend, "log backend: slog or zap")
}

// ApplyFlags copies every explicitly set flag into c.
func (c *Config) ApplyFlags(fs FlagSource) error {
	strs := map[string]*string{
		FlagAPIURL:     &c.APIBaseURL,
		FlagDBPath:     &c.DBPath,
		FlagLogLevel:   &c.LogLevel,
		FlagLogBackend: &c.LogBackend,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	durs := map[string]*time.Duration{
		FlagPollInterval:   &c.NetworkPollInterval,
		FlagFreshFor:       &c.HistoryFreshFor,
		FlagStubDelay:      &c.OfflineStubDelay,
		FlagRequestTimeout: &c.RequestTimeout,
	}
	for name, dst := range durs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetDuration(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	if fs.Changed(FlagOffline) {
		v, err := fs.GetBool(FlagOffline)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", FlagOffline, err)
		}
		c.ForceOffline = v
	}
	return nil
}
