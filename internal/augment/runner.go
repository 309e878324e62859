package augment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"golang.org/x/sync/singleflight"
)

// Configuration defaults. New applies DefaultTimeout to a zero Timeout;
// the others are used by the configuration layer.
const (
	DefaultTimeout      = 20 * time.Second
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultCacheTTL     = time.Hour
	DefaultCacheEntries = 4096
)

// Config configures a Runner.
type Config struct {
	// Capability defaults to Noop.
	Capability Capability
	// Timeout bounds each attempt.
	Timeout time.Duration
	// RetryBackoff is the fixed wait before the single retry.
	RetryBackoff time.Duration
	// CacheTTL bounds cached outcomes. Zero disables expiry.
	CacheTTL time.Duration
	// CacheEntries caps the in-process tier. Zero means DefaultCacheEntries.
	CacheEntries int
	// MaxChars is the document budget for rules that set none.
	MaxChars int
	// Store is an optional persistent cache tier.
	Store  Store
	Logger *slog.Logger
}

// Stats are cumulative runner counters.
type Stats struct {
	Invocations int64 `json:"invocations"`
	CacheHits   int64 `json:"cache_hits"`
	Shared      int64 `json:"shared"`
	Failures    int64 `json:"failures"`
	Skipped     int64 `json:"skipped"`
}

// Runner evaluates augmented rules. It implements lint.Augmenter and is
// safe for concurrent use.
type Runner struct {
	cfg        Config
	capability Capability
	logger     *slog.Logger
	cache      *memoryCache
	group      singleflight.Group

	invocations atomic.Int64
	hits        atomic.Int64
	shared      atomic.Int64
	failures    atomic.Int64
	skipped     atomic.Int64
}

var _ lint.Augmenter = (*Runner)(nil)

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Capability == nil {
		cfg.Capability = Noop{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	if cfg.CacheEntries <= 0 {
		cfg.CacheEntries = DefaultCacheEntries
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = lint.DefaultMaxChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		cfg:        cfg,
		capability: cfg.Capability,
		logger:     logger,
		cache:      newMemoryCache(cfg.CacheTTL, cfg.CacheEntries),
	}
}

// Available reports whether the capability can be called.
func (r *Runner) Available() bool { return r.capability.Available() }

// Stats returns a snapshot of the counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Invocations: r.invocations.Load(),
		CacheHits:   r.hits.Load(),
		Shared:      r.shared.Load(),
		Failures:    r.failures.Load(),
		Skipped:     r.skipped.Load(),
	}
}

// Run implements lint.Augmenter. It returns ok=false when the capability is
// unavailable, fails, answers unusably or finds the rule satisfied.
func (r *Runner) Run(ctx context.Context, rule *lint.Rule, doc *document.Document, lctx core.LintContext) (core.Finding, bool) {
	if !r.capability.Available() {
		r.skipped.Add(1)
		r.logger.Debug("augmentation unavailable, rule skipped", "rule", rule.ID)
		return core.Finding{}, false
	}
	key := Fingerprint(rule.ID, doc.Hash(), lctx.Variant)

	e, err := r.cached(ctx, key, func(ctx context.Context) (entry, error) {
		return r.evaluate(ctx, rule, doc, lctx)
	})
	if err != nil || e.Finding == nil {
		return core.Finding{}, false
	}
	return *e.Finding, true
}

// Complete runs an arbitrary prompt under the same timeout, retry and cache
// policy. key identifies the request for caching.
func (r *Runner) Complete(ctx context.Context, key string, p Prompt, c Constraints) (string, error) {
	if !r.capability.Available() {
		r.skipped.Add(1)
		return "", ErrUnavailable
	}
	h := xxhash.NewS64(0)
	_, _ = h.Write([]byte("complete\x00" + key))
	fp := "c" + strconv.FormatUint(h.Sum64(), 16)

	e, err := r.cached(ctx, fp, func(ctx context.Context) (entry, error) {
		out, err := r.call(ctx, "", p, c)
		if err != nil {
			return entry{}, err
		}
		return entry{Text: out}, nil
	})
	if err != nil {
		return "", err
	}
	return e.Text, nil
}

// cached consults both cache tiers and otherwise computes the entry once for
// all concurrent callers of key. Each caller still honours its own ctx.
func (r *Runner) cached(ctx context.Context, key string, compute func(context.Context) (entry, error)) (entry, error) {
	if e, ok := r.lookup(ctx, key); ok {
		r.hits.Add(1)
		return e, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if e, ok := r.cache.get(key); ok {
			return e, nil
		}
		e, err := compute(detached)
		if err != nil {
			r.failures.Add(1)
			return entry{}, err
		}
		r.store(detached, key, e)
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.shared.Add(1)
		}
		if res.Err != nil {
			return entry{}, res.Err
		}
		return res.Val.(entry), nil
	case <-ctx.Done():
		return entry{}, ctx.Err()
	}
}

func (r *Runner) lookup(ctx context.Context, key string) (entry, bool) {
	if e, ok := r.cache.get(key); ok {
		return e, true
	}
	if r.cfg.Store == nil {
		return entry{}, false
	}
	data, ok, err := r.cfg.Store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("augmentation cache read failed", "key", key, "error", err)
		return entry{}, false
	}
	if !ok {
		return entry{}, false
	}
	e, err := decodeEntry(data)
	if err != nil {
		r.logger.Warn("augmentation cache entry unreadable", "key", key, "error", err)
		return entry{}, false
	}
	r.cache.put(key, e)
	return e, true
}

func (r *Runner) store(ctx context.Context, key string, e entry) {
	r.cache.put(key, e)
	if r.cfg.Store == nil {
		return
	}
	data, err := e.encode()
	if err == nil {
		err = r.cfg.Store.Set(ctx, key, data, r.cfg.CacheTTL)
	}
	if err != nil {
		r.logger.Warn("augmentation cache write failed", "key", key, "error", err)
	}
}

func (r *Runner) evaluate(ctx context.Context, rule *lint.Rule, doc *document.Document, lctx core.LintContext) (entry, error) {
	p, c := BuildPrompt(rule, doc, lctx, r.cfg.MaxChars)
	raw, err := r.call(ctx, rule.ID, p, c)
	if err != nil {
		return entry{}, err
	}
	items, err := parseFindings(raw)
	if err != nil {
		aerr := &AugmentationError{Kind: KindInvalidResponse, RuleID: rule.ID, Err: err}
		r.logger.Warn("augmentation answer rejected", "rule", rule.ID, "error", err)
		return entry{}, aerr
	}
	it, breach := firstBreach(items)
	if !breach {
		return entry{}, nil
	}
	f := toFinding(rule, doc, it)
	return entry{Finding: &f}, nil
}

// call performs one attempt and, on timeout or transport failure, exactly
// one retry after the fixed backoff.
func (r *Runner) call(ctx context.Context, ruleID string, p Prompt, c Constraints) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			r.logger.Debug("retrying augmentation", "rule", ruleID, "error", lastErr, "backoff", r.cfg.RetryBackoff)
			select {
			case <-time.After(r.cfg.RetryBackoff):
			case <-ctx.Done():
				return "", &AugmentationError{Kind: KindTimeout, RuleID: ruleID, Err: ctx.Err()}
			}
		}
		out, err := r.attempt(ctx, ruleID, p, c)
		if err == nil {
			return out, nil
		}
		lastErr = err
		var aerr *AugmentationError
		if errors.As(err, &aerr) && !aerr.Retryable() {
			break
		}
	}
	r.logger.Warn("augmentation failed", "rule", ruleID, "error", lastErr)
	return "", lastErr
}

func (r *Runner) attempt(ctx context.Context, ruleID string, p Prompt, c Constraints) (string, error) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	r.invocations.Add(1)
	out, err := r.capability.Complete(actx, p, c)
	switch {
	case err == nil && out == "":
		return "", &AugmentationError{Kind: KindInvalidResponse, RuleID: ruleID, Err: fmt.Errorf("%w: empty answer", ErrInvalidResponse)}
	case err == nil:
		return out, nil
	case errors.Is(err, ErrInvalidResponse):
		return "", &AugmentationError{Kind: KindInvalidResponse, RuleID: ruleID, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded):
		return "", &AugmentationError{Kind: KindTimeout, RuleID: ruleID, Err: err}
	default:
		return "", &AugmentationError{Kind: KindTransport, RuleID: ruleID, Err: err}
	}
}
