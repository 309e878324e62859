package config

import (
	"github.com/leapstack-labs/apalint/internal/augment"
	"github.com/leapstack-labs/apalint/internal/engine"
	"github.com/leapstack-labs/apalint/internal/server"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
)

// Default configuration values.
const (
	DefaultRulesDir    = "rules"
	DefaultCachePath   = ".apalint/cache.db"
	DefaultProvider    = "openai"
	DefaultTemperature = 0.0
	DefaultMaxTokens   = 1024
)

// Defaults returns the default values keyed by config path, ready to be
// layered under file, environment and flag values.
func Defaults() map[string]any {
	return map[string]any{
		"lint.variant":            "official",
		"lint.language":           "es",
		"lint.timeout":            engine.DefaultTimeout.String(),
		"lint.concurrency":        0,
		"lint.max_document_bytes": engine.DefaultMaxDocumentBytes,
		"profile.min_confidence":  profile.DefaultMinConfidence,
		"augment.enabled":         false,
		"augment.provider":        DefaultProvider,
		"augment.temperature":     DefaultTemperature,
		"augment.max_tokens":      DefaultMaxTokens,
		"augment.timeout":         augment.DefaultTimeout.String(),
		"augment.retry_backoff":   augment.DefaultRetryBackoff.String(),
		"augment.cache_ttl":       augment.DefaultCacheTTL.String(),
		"augment.cache_entries":   augment.DefaultCacheEntries,
		"cache.backend":           CacheMemory,
		"cache.path":              DefaultCachePath,
		"server.addr":             server.DefaultAddr,
		"server.watch":            false,
		"server.max_body_bytes":   server.DefaultMaxBodyBytes,
	}
}

// ApplyDefaults fills zero values of an AugmentConfig.
func ApplyDefaults(a *AugmentConfig) {
	if a == nil {
		return
	}
	if a.Provider == "" {
		a.Provider = DefaultProvider
	}
	if a.Timeout <= 0 {
		a.Timeout = augment.DefaultTimeout
	}
	if a.RetryBackoff < 0 {
		a.RetryBackoff = augment.DefaultRetryBackoff
	}
	if a.CacheTTL < 0 {
		a.CacheTTL = 0
	}
	if a.CacheEntries <= 0 {
		a.CacheEntries = augment.DefaultCacheEntries
	}
	if a.MaxTokens <= 0 {
		a.MaxTokens = DefaultMaxTokens
	}
}
