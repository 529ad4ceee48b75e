package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.HTTPCache.Enabled {
		t.Error("Expected HTTP cache to be enabled by default")
	}
	if cfg.HTTPCache.DefaultMaxAge != 2*time.Hour {
		t.Errorf("DefaultMaxAge = %v, want 2h", cfg.HTTPCache.DefaultMaxAge)
	}
	if cfg.HTTPCache.RuleIDStrategy != StrategyAreaFiltered {
		t.Errorf("RuleIDStrategy = %q, want %q", cfg.HTTPCache.RuleIDStrategy, StrategyAreaFiltered)
	}
	if cfg.Names.HashCookie != "sw-cache-hash" {
		t.Errorf("HashCookie = %q, want sw-cache-hash", cfg.Names.HashCookie)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.yaml")
	content := `
http_cache:
  default_max_age: 30m
  stale_while_revalidate: 1m
  stale_if_error: 1h
  legacy_states: true
  rule_id_strategy: legacy
  cache_relevant_cookies: [sw-affiliate, sw-campaign]
  salt: release-42
  trusted_proxies: [10.0.0.0/8]
names:
  hash_cookie: x-hash
maintenance:
  enabled: true
  allowed_ips: [10.0.0.1]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPCache.DefaultMaxAge != 30*time.Minute {
		t.Errorf("DefaultMaxAge = %v, want 30m", cfg.HTTPCache.DefaultMaxAge)
	}
	if cfg.HTTPCache.StaleWhileRevalidate != time.Minute || cfg.HTTPCache.StaleIfError != time.Hour {
		t.Errorf("stale directives = %v/%v", cfg.HTTPCache.StaleWhileRevalidate, cfg.HTTPCache.StaleIfError)
	}
	if !cfg.HTTPCache.LegacyStates {
		t.Error("LegacyStates not loaded")
	}
	if cfg.HTTPCache.RuleIDStrategy != StrategyLegacy {
		t.Errorf("RuleIDStrategy = %q, want legacy", cfg.HTTPCache.RuleIDStrategy)
	}
	if len(cfg.HTTPCache.CacheRelevantCookies) != 2 || cfg.HTTPCache.CacheRelevantCookies[1] != "sw-campaign" {
		t.Errorf("CacheRelevantCookies = %v", cfg.HTTPCache.CacheRelevantCookies)
	}
	if len(cfg.HTTPCache.TrustedProxies) != 1 || cfg.HTTPCache.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("TrustedProxies = %v", cfg.HTTPCache.TrustedProxies)
	}
	if cfg.Names.HashCookie != "x-hash" {
		t.Errorf("HashCookie = %q, want x-hash", cfg.Names.HashCookie)
	}
	// untouched keys keep their defaults
	if cfg.Names.StatesCookie != "sw-states" {
		t.Errorf("StatesCookie = %q, want default sw-states", cfg.Names.StatesCookie)
	}
	if !cfg.Maintenance.Enabled || cfg.Maintenance.AllowedIPs[0] != "10.0.0.1" {
		t.Errorf("Maintenance = %+v", cfg.Maintenance)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Names.HashHeader != "sw-cache-hash" {
		t.Errorf("HashHeader = %q", cfg.Names.HashHeader)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HTTP_CACHE_ENABLED", "false")
	t.Setenv("HTTP_CACHE_DEFAULT_MAX_AGE", "15m")
	t.Setenv("REDIS_URL", "redis:6380")
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_CACHE_TRUSTED_PROXIES", "10.0.0.1,192.168.0.0/16")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.HTTPCache.Enabled {
		t.Error("Enabled should be overridden to false")
	}
	if cfg.HTTPCache.DefaultMaxAge != 15*time.Minute {
		t.Errorf("DefaultMaxAge = %v, want 15m", cfg.HTTPCache.DefaultMaxAge)
	}
	if cfg.Redis.Addr != "redis:6380" || cfg.Server.Port != "9090" {
		t.Errorf("Redis.Addr = %q, Server.Port = %q", cfg.Redis.Addr, cfg.Server.Port)
	}
	if len(cfg.HTTPCache.TrustedProxies) != 2 || cfg.HTTPCache.TrustedProxies[1] != "192.168.0.0/16" {
		t.Errorf("TrustedProxies = %v", cfg.HTTPCache.TrustedProxies)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad bool", key: "HTTP_CACHE_ENABLED", value: "maybe"},
		{name: "bad duration", key: "HTTP_CACHE_DEFAULT_MAX_AGE", value: "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := DefaultConfig()
			if err := cfg.ApplyEnv(); err == nil {
				t.Errorf("ApplyEnv() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative max age", mutate: func(c *Config) { c.HTTPCache.DefaultMaxAge = -time.Second }},
		{name: "negative stale-if-error", mutate: func(c *Config) { c.HTTPCache.StaleIfError = -time.Second }},
		{name: "unknown strategy", mutate: func(c *Config) { c.HTTPCache.RuleIDStrategy = "newest" }},
		{name: "empty hash cookie", mutate: func(c *Config) { c.Names.HashCookie = " " }},
		{name: "empty relevant cookie", mutate: func(c *Config) { c.HTTPCache.CacheRelevantCookies = []string{""} }},
		{name: "negative buffer", mutate: func(c *Config) { c.Redis.BufferSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestMaxAgeSeconds(t *testing.T) {
	if got := MaxAgeSeconds(90 * time.Minute); got != 5400 {
		t.Errorf("MaxAgeSeconds(90m) = %d, want 5400", got)
	}
}
