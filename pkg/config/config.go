// Package config holds the immutable configuration shared by the caching
// components. It is built once at process start (defaults, then an optional
// YAML file, then environment overrides) and passed by pointer into every
// constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for unusable configurations.
var ErrInvalidConfig = errors.New("invalid config")

// Rule id strategies selectable for context hashing.
const (
	StrategyAreaFiltered = "area-filtered"
	StrategyLegacy       = "legacy"
)

// HTTPCache configures the caching decisions.
type HTTPCache struct {
	// Enabled is the global kill switch for HTTP caching.
	Enabled bool `yaml:"enabled"`

	// DefaultMaxAge is the shared max-age when a route gives none.
	DefaultMaxAge time.Duration `yaml:"default_max_age"`

	// StaleWhileRevalidate and StaleIfError are emitted when > 0.
	StaleWhileRevalidate time.Duration `yaml:"stale_while_revalidate"`
	StaleIfError         time.Duration `yaml:"stale_if_error"`

	// LegacyStates enables the sw-states cookie invalidation mechanism.
	LegacyStates bool `yaml:"legacy_states"`

	// RuleIDStrategy is StrategyAreaFiltered or StrategyLegacy.
	RuleIDStrategy string `yaml:"rule_id_strategy"`

	// CacheRelevantCookies are request cookies that force a context hash
	// and are folded into it, in this order.
	CacheRelevantCookies []string `yaml:"cache_relevant_cookies"`

	// IgnoredQueryParams are dropped from the URI before key generation.
	IgnoredQueryParams []string `yaml:"ignored_query_params"`

	// Salt seeds every cache key (e.g. a deployment id).
	Salt string `yaml:"salt"`

	// AlwaysInvalidatingStates invalidate every stored response.
	AlwaysInvalidatingStates []string `yaml:"always_invalidating_states"`

	// TrustedProxies are the TLS-terminating proxies whose
	// X-Forwarded-Proto header is honoured. Addresses or CIDR prefixes.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Names are the cookie and header names shared with the proxy.
type Names struct {
	HashCookie               string `yaml:"hash_cookie"`
	CurrencyCookie           string `yaml:"currency_cookie"`
	StatesCookie             string `yaml:"states_cookie"`
	HashHeader               string `yaml:"hash_header"`
	CurrencyHeader           string `yaml:"currency_header"`
	LanguageHeader           string `yaml:"language_header"`
	InvalidationHeader       string `yaml:"invalidation_header"`
	NoAutoCacheControlHeader string `yaml:"no_auto_cache_control_header"`
}

// Maintenance mirrors the shop's maintenance mode.
type Maintenance struct {
	Enabled    bool     `yaml:"enabled"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

// Redis configures the variant cardinality tracker.
type Redis struct {
	Addr          string        `yaml:"addr"`
	DB            int           `yaml:"db"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// Server configures the demo storefront server.
type Server struct {
	Port string `yaml:"port"`
}

// Log configures pkg/logging.
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the full configuration.
type Config struct {
	HTTPCache   HTTPCache   `yaml:"http_cache"`
	Names       Names       `yaml:"names"`
	Maintenance Maintenance `yaml:"maintenance"`
	Redis       Redis       `yaml:"redis"`
	Server      Server      `yaml:"server"`
	Log         Log         `yaml:"log"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		HTTPCache: HTTPCache{
			Enabled:        true,
			DefaultMaxAge:  2 * time.Hour,
			RuleIDStrategy: StrategyAreaFiltered,
			IgnoredQueryParams: []string{
				"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
				"gclid", "fbclid",
			},
			AlwaysInvalidatingStates: []string{},
		},
		Names: Names{
			HashCookie:               "sw-cache-hash",
			CurrencyCookie:           "sw-currency",
			StatesCookie:             "sw-states",
			HashHeader:               "sw-cache-hash",
			CurrencyHeader:           "sw-currency-id",
			LanguageHeader:           "sw-language-id",
			InvalidationHeader:       "sw-invalidation-states",
			NoAutoCacheControlHeader: "X-No-Auto-Cache-Control",
		},
		Redis: Redis{
			Addr:          "localhost:6379",
			FlushInterval: 5 * time.Second,
			BufferSize:    4096,
		},
		Server: Server{Port: "8080"},
		Log:    Log{Level: "info"},
	}
}

// Load reads a YAML file on top of DefaultConfig, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides selected keys from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("HTTP_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HTTP_CACHE_ENABLED must be a bool: %w", err)
		}
		c.HTTPCache.Enabled = b
	}
	if v := os.Getenv("HTTP_CACHE_DEFAULT_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HTTP_CACHE_DEFAULT_MAX_AGE must be a duration (e.g. 2h): %w", err)
		}
		c.HTTPCache.DefaultMaxAge = d
	}
	if v := os.Getenv("HTTP_CACHE_SALT"); v != "" {
		c.HTTPCache.Salt = v
	}
	if v := os.Getenv("HTTP_CACHE_TRUSTED_PROXIES"); v != "" {
		c.HTTPCache.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the configuration for values the components cannot use.
func (c *Config) Validate() error {
	hc := c.HTTPCache
	if hc.DefaultMaxAge < 0 || hc.StaleWhileRevalidate < 0 || hc.StaleIfError < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	switch hc.RuleIDStrategy {
	case StrategyAreaFiltered, StrategyLegacy:
	default:
		return fmt.Errorf("%w: unknown rule_id_strategy %q", ErrInvalidConfig, hc.RuleIDStrategy)
	}

	names := map[string]string{
		"hash_cookie":                  c.Names.HashCookie,
		"currency_cookie":              c.Names.CurrencyCookie,
		"states_cookie":                c.Names.StatesCookie,
		"hash_header":                  c.Names.HashHeader,
		"currency_header":              c.Names.CurrencyHeader,
		"language_header":              c.Names.LanguageHeader,
		"invalidation_header":          c.Names.InvalidationHeader,
		"no_auto_cache_control_header": c.Names.NoAutoCacheControlHeader,
	}
	for key, value := range names {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: names.%s must not be empty", ErrInvalidConfig, key)
		}
	}

	for _, cookie := range hc.CacheRelevantCookies {
		if strings.TrimSpace(cookie) == "" {
			return fmt.Errorf("%w: cache_relevant_cookies contains an empty name", ErrInvalidConfig)
		}
	}

	if c.Redis.BufferSize < 0 {
		return fmt.Errorf("%w: redis.buffer_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// MaxAgeSeconds converts a shared max-age to whole seconds.
func MaxAgeSeconds(d time.Duration) int {
	return int(d / time.Second)
}
