// Package config provides configuration management for the apalint CLI.
//
// It extends the shared configuration types from internal/config with
// CLI-specific fields. The shared types are re-exported here via type
// aliases for convenience.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	sharedcfg "github.com/leapstack-labs/apalint/internal/config"
)

// LintConfig is an alias for the shared lint configuration.
type LintConfig = sharedcfg.LintConfig

// RuleOptions is an alias for the shared rule options type.
type RuleOptions = sharedcfg.RuleOptions

// ProfileConfig is an alias for the shared profile configuration.
type ProfileConfig = sharedcfg.ProfileConfig

// AugmentConfig is an alias for the shared augmentation configuration.
type AugmentConfig = sharedcfg.AugmentConfig

// CacheConfig is an alias for the shared cache configuration.
type CacheConfig = sharedcfg.CacheConfig

// ServerConfig is an alias for the shared server configuration.
type ServerConfig = sharedcfg.ServerConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string        `koanf:"-"`
	RulesDir     string        `koanf:"rules_dir"`
	OutputFormat string        `koanf:"output"`
	Verbose      bool          `koanf:"verbose"`
	LogLevel     string        `koanf:"log_level"`
	DocsBaseURL  string        `koanf:"docs_base_url"`
	Lint         LintConfig    `koanf:"lint"`
	Profile      ProfileConfig `koanf:"profile"`
	Augment      AugmentConfig `koanf:"augment"`
	Cache        CacheConfig   `koanf:"cache"`
	Server       ServerConfig  `koanf:"server"`
}

// Default configuration values.
const (
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel = "warn"
	EnvPrefix       = "APALINT_"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("output: unknown format %q (expected auto, text, markdown or json)", c.OutputFormat)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if _, err := c.Lint.ToLintConfig(); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level. Empty means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("log_level: unknown level %q", s)
	}
}
