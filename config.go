package authsess

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines a public type used by authsess APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	API     APIConfig
	Tokens  TokenConfig
	Storage StorageConfig
	Events  EventConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig defines a public type used by authsess APIs.
//
// APIConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authsess APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// RefreshTimeout bounds one refresh flight end to end, independent
	// of any single caller's context.
	RefreshTimeout time.Duration

	// ExpiryLeeway treats tokens expiring within this window as already
	// expired, so refresh starts before the deadline hits.
	ExpiryLeeway time.Duration
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig defines a public type used by authsess APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	TokenKey string
	UserKey  string
}

/*
====================================
EVENT CONFIG
====================================
*/

// EventConfig defines a public type used by authsess APIs.
//
// EventConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authsess APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   15 * time.Second,
			UserAgent: "authsess/1",
		},
		Tokens: TokenConfig{
			RefreshTimeout: 30 * time.Second,
			ExpiryLeeway:   0,
		},
		Storage: StorageConfig{
			TokenKey: "auth_token",
			UserKey:  "auth_user",
		},
		Events: EventConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration used when
// [Builder.WithConfig] is never called.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	return out
}

/*
====================================
FILE LOADING
====================================
*/

// fileConfig is the YAML shape of a config file. Durations are strings
// in time.ParseDuration form ("15s", "2m"); empty fields keep defaults.
type fileConfig struct {
	API struct {
		BaseURL   string `yaml:"base_url"`
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"api"`
	Tokens struct {
		RefreshTimeout string `yaml:"refresh_timeout"`
		ExpiryLeeway   string `yaml:"expiry_leeway"`
	} `yaml:"tokens"`
	Storage struct {
		TokenKey string `yaml:"token_key"`
		UserKey  string `yaml:"user_key"`
	} `yaml:"storage"`
	Events struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize *int  `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"events"`
	Metrics struct {
		Enabled                 *bool `yaml:"enabled"`
		EnableLatencyHistograms *bool `yaml:"latency_histograms"`
	} `yaml:"metrics"`
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// Missing fields keep their default values; the result is validated
// before being returned.
//
//	Docs: docs/session.md
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.API.BaseURL != "" {
		cfg.API.BaseURL = fc.API.BaseURL
	}
	if fc.API.UserAgent != "" {
		cfg.API.UserAgent = fc.API.UserAgent
	}
	if d, err := parseDurationField("api.timeout", fc.API.Timeout); err != nil {
		return Config{}, err
	} else if d > 0 {
		cfg.API.Timeout = d
	}

	if d, err := parseDurationField("tokens.refresh_timeout", fc.Tokens.RefreshTimeout); err != nil {
		return Config{}, err
	} else if d > 0 {
		cfg.Tokens.RefreshTimeout = d
	}
	if d, err := parseDurationField("tokens.expiry_leeway", fc.Tokens.ExpiryLeeway); err != nil {
		return Config{}, err
	} else if d > 0 {
		cfg.Tokens.ExpiryLeeway = d
	}

	if fc.Storage.TokenKey != "" {
		cfg.Storage.TokenKey = fc.Storage.TokenKey
	}
	if fc.Storage.UserKey != "" {
		cfg.Storage.UserKey = fc.Storage.UserKey
	}

	if fc.Events.Enabled != nil {
		cfg.Events.Enabled = *fc.Events.Enabled
	}
	if fc.Events.BufferSize != nil {
		cfg.Events.BufferSize = *fc.Events.BufferSize
	}
	if fc.Events.DropIfFull != nil {
		cfg.Events.DropIfFull = *fc.Events.DropIfFull
	}

	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}
	if fc.Metrics.EnableLatencyHistograms != nil {
		cfg.Metrics.EnableLatencyHistograms = *fc.Metrics.EnableLatencyHistograms
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parseDurationField(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config field %s: %w", name, err)
	}
	return d, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// API
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil {
			return errors.New("API BaseURL is not a valid URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("API BaseURL must use http or https")
		}
		if u.Host == "" {
			return errors.New("API BaseURL must include a host")
		}
	}

	// Tokens
	if c.Tokens.RefreshTimeout <= 0 {
		return errors.New("Tokens RefreshTimeout must be > 0")
	}
	if c.Tokens.ExpiryLeeway < 0 {
		return errors.New("Tokens ExpiryLeeway must be >= 0")
	}
	if c.Tokens.ExpiryLeeway > 5*time.Minute {
		return errors.New("Tokens ExpiryLeeway must be <= 5m")
	}

	// Storage
	if strings.TrimSpace(c.Storage.TokenKey) == "" {
		return errors.New("Storage TokenKey must not be empty")
	}
	if strings.TrimSpace(c.Storage.UserKey) == "" {
		return errors.New("Storage UserKey must not be empty")
	}
	if c.Storage.TokenKey == c.Storage.UserKey {
		return errors.New("Storage TokenKey and UserKey must differ")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	return nil
}
