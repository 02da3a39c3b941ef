package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agriai/agrisync/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape. Pointer fields distinguish "absent" from
// a zero value so a file only overrides what it names.
type fileConfig struct {
	APIBaseURL          *string         `json:"api_base_url" yaml:"api_base_url"`
	DBPath              *string         `json:"db_path" yaml:"db_path"`
	NetworkPollInterval *timex.Duration `json:"network_poll_interval" yaml:"network_poll_interval"`
	HistoryFreshFor     *timex.Duration `json:"history_fresh_for" yaml:"history_fresh_for"`
	OfflineStubDelay    *timex.Duration `json:"offline_stub_delay" yaml:"offline_stub_delay"`
	RequestTimeout      *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	ForceOffline        *bool           `json:"force_offline" yaml:"force_offline"`
	LogLevel            *string         `json:"log_level" yaml:"log_level"`
	LogBackend          *string         `json:"log_backend" yaml:"log_backend"`
}

// LoadFile overlays c with the JSON or YAML file at path. The format is
// chosen by extension: .yaml and .yml are YAML, anything else JSON. Unknown
// keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	}

	c.apply(fc)
	return nil
}

func (c *Config) apply(fc fileConfig) {
	if fc.APIBaseURL != nil {
		c.APIBaseURL = *fc.APIBaseURL
	}
	if fc.DBPath != nil {
		c.DBPath = *fc.DBPath
	}
	if fc.NetworkPollInterval != nil {
		c.NetworkPollInterval = fc.NetworkPollInterval.Duration
	}
	if fc.HistoryFreshFor != nil {
		c.HistoryFreshFor = fc.HistoryFreshFor.Duration
	}
	if fc.OfflineStubDelay != nil {
		c.OfflineStubDelay = fc.OfflineStubDelay.Duration
	}
	if fc.RequestTimeout != nil {
		c.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.ForceOffline != nil {
		c.ForceOffline = *fc.ForceOffline
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.LogBackend != nil {
		c.LogBackend = *fc.LogBackend
	}
}
