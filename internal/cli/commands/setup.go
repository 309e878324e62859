package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/apalint/internal/augment"
	"github.com/leapstack-labs/apalint/internal/cli/config"
	"github.com/leapstack-labs/apalint/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/apalint/internal/config"
	"github.com/leapstack-labs/apalint/internal/coach"
	"github.com/leapstack-labs/apalint/internal/engine"
	"github.com/leapstack-labs/apalint/internal/provider"
	_ "github.com/leapstack-labs/apalint/internal/provider/openai" // register openai
	"github.com/leapstack-labs/apalint/internal/starlark"
	"github.com/leapstack-labs/apalint/internal/state"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/leapstack-labs/apalint/pkg/lint/agents"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
)

// redisPingTimeout bounds the connectivity check of the redis cache.
const redisPingTimeout = 3 * time.Second

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Runner   *augment.Runner // nil when augmentation is disabled
	Coach    *coach.Service
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine, coach and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	rules, err := LoadRules(cfg.RulesDir)
	if err != nil {
		return nil, nil, err
	}
	modules, err := LoadModules(cfg.RulesDir)
	if err != nil {
		return nil, nil, err
	}

	runner, closeStore, err := newRunner(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	lintCfg, err := cfg.Lint.ToLintConfig()
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}

	profCfg := profile.Config{MinConfidence: cfg.Profile.MinConfidence, Logger: logger}
	engCfg := engine.Config{
		Rules:            rules,
		LintConfig:       lintCfg,
		Timeout:          cfg.Lint.Timeout,
		Concurrency:      cfg.Lint.Concurrency,
		MaxDocumentBytes: cfg.Lint.MaxDocumentBytes,
		Scripts:          starlark.NewRunner(0, logger).WithModules(modules),
		Logger:           logger,
	}
	coachCfg := coach.Config{Logger: logger}
	if runner != nil {
		profCfg.Opinion = augment.ProfileOpinion{Runner: runner}
		engCfg.Augmenter = runner
		coachCfg.Completer = runner
	}
	engCfg.Detector = profile.New(profCfg)

	eng, err := engine.New(engCfg)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	coachCfg.Profiler = eng

	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close augmentation cache", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Runner:   runner,
		Coach:    coach.New(coachCfg),
		Renderer: newRenderer(cmd, cfg.OutputFormat),
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only read rules or configuration.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: newRenderer(cmd, cfg.OutputFormat),
	}
}

// LoadRules loads the embedded catalogue, overlaid with the YAML files under
// dir when it exists.
func LoadRules(dir string) (*lint.RuleSet, error) {
	sources := []lint.RuleSource{agents.DefaultSource()}
	if dir != "" {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			sources = append(sources, lint.DirSource(dir))
		case err == nil:
			return nil, fmt.Errorf("rules path is not a directory: %s", dir)
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read rules directory: %w", err)
		}
	}
	rs, err := lint.Load(sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rs, nil
}

// LoadModules loads the script helper modules kept next to the local rules.
func LoadModules(rulesDir string) ([]*starlark.Module, error) {
	if rulesDir == "" {
		return nil, nil
	}
	modules, err := starlark.LoadModules(filepath.Join(rulesDir, starlark.ModulesDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load script modules: %w", err)
	}
	return modules, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, loading defaults when no
// command has loaded one yet.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{OutputFormat: config.DefaultOutput, LogLevel: config.DefaultLogLevel}
	}
	return cfg
}

func newRenderer(cmd *cobra.Command, format string) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
}

// newRunner builds the augmentation runner and its persistent cache tier.
// It returns a nil runner when augmentation is disabled.
func newRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*augment.Runner, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Augment.Enabled {
		return nil, noop, nil
	}

	capability, err := newCapability(cfg.Augment)
	if err != nil {
		return nil, noop, err
	}
	if !capability.Available() {
		logger.Warn("augmentation enabled but provider is not configured; augmented rules will be skipped",
			"provider", cfg.Augment.Provider)
	}

	store, closeStore, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, noop, err
	}

	runner := augment.New(augment.Config{
		Capability:   capability,
		Timeout:      cfg.Augment.Timeout,
		RetryBackoff: cfg.Augment.RetryBackoff,
		CacheTTL:     cfg.Augment.CacheTTL,
		CacheEntries: cfg.Augment.CacheEntries,
		MaxChars:     cfg.Augment.MaxChars,
		Store:        store,
		Logger:       logger,
	})
	return runner, closeStore, nil
}

// newCapability builds the configured augmentation provider.
func newCapability(cfg config.AugmentConfig) (augment.Capability, error) {
	return provider.New(provider.Config{
		Provider:    cfg.Provider,
		Model:       provider.ResolveModel(cfg.Provider, cfg.Model),
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		HTTPTimeout: cfg.Timeout,
	})
}

// openStore opens the persistent augmentation cache selected by cfg.
// The memory backend has no persistent tier.
func openStore(ctx context.Context, cfg sharedcfg.CacheConfig, logger *slog.Logger) (augment.Store, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case sharedcfg.CacheSQLite:
		path := cfg.Path
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		s := state.NewSQLiteStore()
		if err := s.Open(path); err != nil {
			return nil, nil, err
		}
		logger.Debug("augmentation cache opened", "backend", cfg.Backend, "path", path)
		return s, s.Close, nil

	case sharedcfg.CacheRedis:
		s := state.NewRedisStore(state.RedisOptions{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		logger.Debug("augmentation cache opened", "backend", cfg.Backend, "addr", cfg.RedisAddr)
		return s, s.Close, nil

	default:
		return nil, func() error { return nil }, nil
	}
}
