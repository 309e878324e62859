// Package engine orchestrates one lint operation: it detects the document
// profile, runs the selected agents concurrently under a deadline, and
// merges their findings into a deterministic result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/apalint/internal/starlark"
	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/leapstack-labs/apalint/pkg/lint/agents"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
)

// Defaults applied by New.
const (
	DefaultTimeout          = 60 * time.Second
	DefaultMaxDocumentBytes = 5 << 20
)

// Engine runs lint operations. It is safe for concurrent use.
type Engine struct {
	rules       atomic.Pointer[lint.RuleSet]
	agents      []lint.Agent
	known       map[string]bool
	detector    *profile.Detector
	augmenter   lint.Augmenter
	scripts     lint.ScriptRunner
	lintConfig  *lint.Config
	timeout     time.Duration
	concurrency int
	maxBytes    int
	logger      *slog.Logger
	now         func() time.Time
}

// Config holds engine configuration.
type Config struct {
	// Rules is the initial rule set. Required.
	Rules *lint.RuleSet
	// Agents defaults to agents.Builtin().
	Agents []lint.Agent
	// Detector defaults to a heuristic-only profile detector.
	Detector *profile.Detector
	// Augmenter evaluates augmented rules. Nil skips them.
	Augmenter lint.Augmenter
	// Scripts evaluates script rules. Defaults to a Starlark runner.
	Scripts lint.ScriptRunner
	// LintConfig carries per-rule overrides. May be nil.
	LintConfig *lint.Config
	// Timeout bounds one operation, profile detection included.
	Timeout time.Duration
	// Concurrency caps agents running at once. Zero means all of them.
	Concurrency int
	// MaxDocumentBytes rejects larger documents as invalid requests.
	MaxDocumentBytes int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Rules == nil {
		return nil, errors.New("engine: rule set is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	list := cfg.Agents
	if list == nil {
		list = agents.Builtin()
	}
	known := map[string]bool{profile.AgentID: true}
	for _, a := range list {
		if known[a.ID()] {
			return nil, fmt.Errorf("engine: duplicate agent %q", a.ID())
		}
		known[a.ID()] = true
	}

	detector := cfg.Detector
	if detector == nil {
		detector = profile.New(profile.Config{Logger: logger})
	}
	scripts := cfg.Scripts
	if scripts == nil {
		scripts = starlark.NewRunner(0, logger)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 || concurrency > len(list) {
		concurrency = len(list)
	}
	maxBytes := cfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}

	e := &Engine{
		agents:      list,
		known:       known,
		detector:    detector,
		augmenter:   cfg.Augmenter,
		scripts:     scripts,
		lintConfig:  cfg.LintConfig,
		timeout:     timeout,
		concurrency: concurrency,
		maxBytes:    maxBytes,
		logger:      logger,
		now:         time.Now,
	}
	e.rules.Store(cfg.Rules)
	logger.Debug("engine initialized", "agents", len(list), "rules", cfg.Rules.Len(), "timeout", timeout)
	return e, nil
}

// Rules returns the current rule set.
func (e *Engine) Rules() *lint.RuleSet { return e.rules.Load() }

// SetRules replaces the rule set. Operations already running keep the set
// they started with.
func (e *Engine) SetRules(rs *lint.RuleSet) {
	if rs == nil {
		return
	}
	e.rules.Store(rs)
	e.logger.Info("rules reloaded", "rules", rs.Len(), "domains", len(rs.Domains()))
}

// AgentIDs returns the ids of the agents the engine can run, sorted,
// including the profile detector.
func (e *Engine) AgentIDs() []string {
	out := make([]string, 0, len(e.known))
	for id := range e.known {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Augmented reports whether augmented rules can be evaluated.
func (e *Engine) Augmented() bool {
	if e.augmenter == nil {
		return false
	}
	if a, ok := e.augmenter.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// validate normalizes lctx and rejects requests the engine cannot serve.
func (e *Engine) validate(text string, lctx core.LintContext) (core.LintContext, error) {
	lctx, err := lctx.Normalize()
	if err != nil {
		return lctx, err
	}
	for _, id := range lctx.Agents {
		if !e.known[id] {
			return lctx, core.NewRequestError("agents", fmt.Sprintf("unknown agent %q", id))
		}
	}
	if len(text) > e.maxBytes {
		return lctx, core.NewRequestError("document_text", fmt.Sprintf("document is %d bytes, limit is %d", len(text), e.maxBytes))
	}
	return lctx, nil
}

// Profile detects the document profile without running any rule.
func (e *Engine) Profile(ctx context.Context, text string, lctx core.LintContext) (core.DocumentProfile, error) {
	lctx, err := e.validate(text, lctx)
	if err != nil {
		return core.UnknownProfile(), err
	}
	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.detector.Detect(opCtx, document.New(text), lctx), nil
}
