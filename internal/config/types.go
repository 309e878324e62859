// Package config provides the configuration types shared by the CLI and the
// HTTP server. It is decoupled from flag parsing so that tools embedding the
// engine can load the same apalint.yaml.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// LintConfig holds lint operation settings and rule overrides.
type LintConfig struct {
	Variant          string        `koanf:"variant"`
	Language         string        `koanf:"language"`
	DocumentType     string        `koanf:"document_type"`
	Institution      string        `koanf:"institution"`
	Timeout          time.Duration `koanf:"timeout"`
	Concurrency      int           `koanf:"concurrency"`
	MaxDocumentBytes int           `koanf:"max_document_bytes"`

	// Disabled contains rule IDs to disable
	Disabled []string `koanf:"disabled"`

	// Severity maps rule ID to severity override (error, warning, info)
	Severity map[string]string `koanf:"severity"`

	// Rules contains rule-specific options
	Rules map[string]RuleOptions `koanf:"rules"`
}

// RuleOptions holds rule-specific configuration options.
type RuleOptions map[string]any

// ProfileConfig tunes the profile detector.
type ProfileConfig struct {
	MinConfidence float64 `koanf:"min_confidence"`
}

// AugmentConfig configures the language-model capability.
type AugmentConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Provider     string        `koanf:"provider"`
	Model        string        `koanf:"model"`
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	Temperature  float64       `koanf:"temperature"`
	MaxTokens    int           `koanf:"max_tokens"`
	Timeout      time.Duration `koanf:"timeout"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	CacheEntries int           `koanf:"cache_entries"`
	MaxChars     int           `koanf:"max_chars"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// CacheConfig selects the persistent tier of the augmentation cache.
type CacheConfig struct {
	Backend       string `koanf:"backend"`
	Path          string `koanf:"path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPassword string `koanf:"redis_password"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `koanf:"addr"`
	APIKeys      []string `koanf:"api_keys"`
	CORSOrigins  []string `koanf:"cors_origins"`
	Watch        bool     `koanf:"watch"`
	MaxBodyBytes int64    `koanf:"max_body_bytes"`
}

// LintContext returns the request defaults encoded in c.
func (c *LintConfig) LintContext() core.LintContext {
	if c == nil {
		return core.LintContext{}
	}
	return core.LintContext{
		Language:     c.Language,
		Variant:      core.Variant(c.Variant),
		DocumentType: c.DocumentType,
		Institution:  c.Institution,
	}
}

// ToLintConfig converts the rule overrides into a lint.Config. Unknown
// severities are rejected.
func (c *LintConfig) ToLintConfig() (*lint.Config, error) {
	out := lint.NewConfig()
	if c == nil {
		return out, nil
	}
	for _, id := range c.Disabled {
		if id = strings.TrimSpace(id); id != "" {
			out.Disable(id)
		}
	}
	for id, sev := range c.Severity {
		s, ok := core.ParseSeverity(sev)
		if !ok {
			return nil, fmt.Errorf("lint.severity.%s: unknown severity %q", id, sev)
		}
		out.SetSeverity(id, s)
	}
	for id, opts := range c.Rules {
		out.SetRuleOptions(id, lint.Options(opts))
	}
	return out, nil
}

// Validate checks values that cannot be defaulted.
func (c *CacheConfig) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", CacheMemory, CacheSQLite:
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (expected memory, sqlite or redis)", c.Backend)
	}
	return nil
}
