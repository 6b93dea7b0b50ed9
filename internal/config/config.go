// Package config loads the client configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Defaults applied to absent fields.
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultDebounceWindow = 400 * time.Millisecond
	DefaultRequestTimeout = 45 * time.Second
	DefaultPageSize       = 20
)

// Duration decodes YAML duration strings ("250ms", "1m30s") or integer
// nanoseconds into a time.Duration.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var ns int64
	if err := node.Decode(&ns); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(ns)
	return nil
}

// Config holds everything the client needs to talk to the platform.
type Config struct {
	// BaseURL is the platform API root.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates every request. Required.
	APIKey string `yaml:"api_key"`

	// UserID scopes catalog queries and training requests.
	UserID string `yaml:"user_id"`

	// DebounceWindow is the quiescence interval for keystroke-driven
	// async checks (name availability, catalog search).
	DebounceWindow Duration `yaml:"debounce_window"`

	// RequestTimeout bounds individual API calls. The training request
	// itself is exempt; see the progress timeline design.
	RequestTimeout Duration `yaml:"request_timeout"`

	// PageSize is the catalog page size.
	PageSize int `yaml:"page_size"`

	// LogFile receives client logs. Empty means discard.
	LogFile string `yaml:"log_file"`

	// SentryDSN enables error forwarding when set.
	SentryDSN string `yaml:"sentry_dsn"`
}

// DefaultPath returns the conventional config location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tablab/config.yaml"
	}
	return filepath.Join(home, ".tablab", "config.yaml")
}

// Load reads and validates the config file at path.
//
// A missing file is an error: the client cannot do anything without
// credentials. Absent optional fields get defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	blob, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(blob, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = Duration(DefaultDebounceWindow)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}
