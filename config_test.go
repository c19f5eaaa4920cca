package authsess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("expected 15s API timeout, got %v", cfg.API.Timeout)
	}
	if cfg.API.UserAgent != "authsess/1" {
		t.Fatalf("unexpected user agent %q", cfg.API.UserAgent)
	}
	if cfg.Tokens.RefreshTimeout != 30*time.Second {
		t.Fatalf("expected 30s refresh timeout, got %v", cfg.Tokens.RefreshTimeout)
	}
	if cfg.Tokens.ExpiryLeeway != 0 {
		t.Fatalf("expected zero leeway, got %v", cfg.Tokens.ExpiryLeeway)
	}
	if cfg.Storage.TokenKey != "auth_token" || cfg.Storage.UserKey != "auth_user" {
		t.Fatalf("unexpected storage keys: %+v", cfg.Storage)
	}
	if cfg.Events.Enabled || cfg.Events.BufferSize != 256 || !cfg.Events.DropIfFull {
		t.Fatalf("unexpected event defaults: %+v", cfg.Events)
	}
	if cfg.Metrics.Enabled || cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(c *Config) {}, ""},
		{"valid base url", func(c *Config) { c.API.BaseURL = "https://auth.example.com" }, ""},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, "Timeout"},
		{"ftp scheme", func(c *Config) { c.API.BaseURL = "ftp://auth.example.com" }, "http or https"},
		{"missing host", func(c *Config) { c.API.BaseURL = "http://" }, "host"},
		{"unparseable url", func(c *Config) { c.API.BaseURL = "://nope" }, "valid URL"},
		{"zero refresh timeout", func(c *Config) { c.Tokens.RefreshTimeout = 0 }, "RefreshTimeout"},
		{"negative leeway", func(c *Config) { c.Tokens.ExpiryLeeway = -time.Second }, "ExpiryLeeway"},
		{"oversized leeway", func(c *Config) { c.Tokens.ExpiryLeeway = 6 * time.Minute }, "<= 5m"},
		{"blank token key", func(c *Config) { c.Storage.TokenKey = "  " }, "TokenKey"},
		{"blank user key", func(c *Config) { c.Storage.UserKey = "" }, "UserKey"},
		{"colliding keys", func(c *Config) { c.Storage.TokenKey = "auth_user" }, "differ"},
		{"events without buffer", func(c *Config) { c.Events.Enabled = true; c.Events.BufferSize = 0 }, "BufferSize"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q in error, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "authsess.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
api:
  base_url: https://auth.example.com
  timeout: 5s
tokens:
  refresh_timeout: 10s
  expiry_leeway: 90s
storage:
  token_key: sess_token
events:
  enabled: true
  buffer_size: 64
  drop_if_full: false
metrics:
  enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.BaseURL != "https://auth.example.com" || cfg.API.Timeout != 5*time.Second {
		t.Fatalf("API overlay missing: %+v", cfg.API)
	}
	if cfg.Tokens.RefreshTimeout != 10*time.Second || cfg.Tokens.ExpiryLeeway != 90*time.Second {
		t.Fatalf("token overlay missing: %+v", cfg.Tokens)
	}
	if cfg.Storage.TokenKey != "sess_token" {
		t.Fatalf("storage overlay missing: %+v", cfg.Storage)
	}
	if !cfg.Events.Enabled || cfg.Events.BufferSize != 64 || cfg.Events.DropIfFull {
		t.Fatalf("event overlay missing: %+v", cfg.Events)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metric overlay missing: %+v", cfg.Metrics)
	}

	// Untouched fields keep their defaults.
	if cfg.API.UserAgent != "authsess/1" {
		t.Fatalf("expected default user agent, got %q", cfg.API.UserAgent)
	}
	if cfg.Storage.UserKey != "auth_user" {
		t.Fatalf("expected default user key, got %q", cfg.Storage.UserKey)
	}
	if cfg.Metrics.EnableLatencyHistograms {
		t.Fatal("latency histograms should stay off")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfigFile(t, "api:\n  timeout: fifteen\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
	if !strings.Contains(err.Error(), "api.timeout") {
		t.Fatalf("expected field name in error, got %q", err.Error())
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeConfigFile(t, "api: [unclosed\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigRejectsInvalidResult(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  token_key: shared_key
  user_key: shared_key
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "differ") {
		t.Fatalf("expected key collision error, got %q", err.Error())
	}
}
