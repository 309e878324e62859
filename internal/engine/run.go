package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
)

// agentResult is what one agent goroutine reports back.
type agentResult struct {
	agent    string
	findings []core.Finding
	skipped  bool
}

// Lint runs one lint operation. It fails only on an invalid request; agent
// failures and timeouts are reflected in the result.
func (e *Engine) Lint(ctx context.Context, text string, lctx core.LintContext) (*Result, error) {
	start := e.now()
	lctx, err := e.validate(text, lctx)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	runID := uuid.New().String()
	log := e.logger.With("run_id", runID)
	rules := e.rules.Load()
	doc := document.New(text)

	in := &lint.Input{
		Doc:       doc,
		Context:   lctx,
		Rules:     rules,
		Augmenter: e.augmenter,
		Scripts:   e.scripts,
		Config:    e.lintConfig,
		Logger:    log,
	}
	in.Profile = e.detector.Detect(opCtx, doc, lctx)

	var findings []core.Finding
	agentsRun := make([]string, 0, len(e.agents)+1)
	if lctx.WantsAgent(profile.AgentID) {
		agentsRun = append(agentsRun, profile.AgentID)
		findings = append(findings, e.detector.Evaluate(opCtx, in)...)
	}

	var selected []lint.Agent
	for _, a := range e.agents {
		if lctx.WantsAgent(a.ID()) {
			selected = append(selected, a)
		}
	}

	results, timedOut := e.runAgents(opCtx, in, selected)
	for _, r := range results {
		agentsRun = append(agentsRun, r.agent)
		findings = append(findings, r.findings...)
	}
	sort.Strings(agentsRun)

	findings = e.admit(findings, rules, lctx, log)
	core.SortFindings(findings)

	res := &Result{
		RunID:     runID,
		Findings:  findings,
		Summary:   core.Summarize(findings),
		Profile:   in.Profile,
		AgentsRun: agentsRun,
		TimedOut:  timedOut,
		Elapsed:   e.now().Sub(start),
		Timestamp: start.UTC(),
		Context:   lctx,
	}
	log.Info("lint completed",
		"findings", len(findings),
		"errors", res.Summary.Errors,
		"agents", len(agentsRun),
		"timed_out", len(timedOut),
		"elapsed", res.Elapsed)
	return res, nil
}

// runAgents evaluates agents concurrently, bounded by the engine's
// concurrency, and abandons those still running when opCtx is done. Results
// are returned in agent order; abandoned agent ids are returned sorted.
func (e *Engine) runAgents(opCtx context.Context, in *lint.Input, selected []lint.Agent) ([]agentResult, []string) {
	if len(selected) == 0 {
		return nil, nil
	}

	resultCh := make(chan agentResult, len(selected))
	sem := make(chan struct{}, e.concurrency)

	for _, a := range selected {
		go func(a lint.Agent) {
			select {
			case sem <- struct{}{}:
			case <-opCtx.Done():
				resultCh <- agentResult{agent: a.ID(), skipped: true}
				return
			}
			defer func() { <-sem }()
			resultCh <- agentResult{agent: a.ID(), findings: e.evaluate(opCtx, a, in)}
		}(a)
	}

	byAgent := make(map[string]agentResult, len(selected))
collect:
	for range selected {
		select {
		case r := <-resultCh:
			if r.skipped {
				continue
			}
			byAgent[r.agent] = r
		case <-opCtx.Done():
			break collect
		}
	}

	var (
		results  []agentResult
		timedOut []string
	)
	for _, a := range selected {
		if r, ok := byAgent[a.ID()]; ok {
			results = append(results, r)
			continue
		}
		timedOut = append(timedOut, a.ID())
		e.logger.Warn("agent abandoned",
			"agent", a.ID(),
			"error", fmt.Errorf("%w: agent %s exceeded %s", core.ErrOperationTimeout, a.ID(), e.timeout))
	}
	sort.Strings(timedOut)
	return results, timedOut
}

// evaluate runs one agent. A panic is reported as a failure finding for
// every rule the agent would have evaluated.
func (e *Engine) evaluate(ctx context.Context, a lint.Agent, in *lint.Input) (out []core.Finding) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("agent panicked", "agent", a.ID(), "panic", r)
			err := &lint.CheckError{Agent: a.ID(), Err: fmt.Errorf("panic: %v", r)}
			out = nil
			for _, rule := range in.Rules.RulesFor(a.ID(), in.Selector()) {
				out = append(out, lint.FailureFinding(a.ID(), rule, err))
			}
		}
	}()
	start := time.Now()
	out = a.Evaluate(ctx, in)
	e.logger.Debug("agent finished", "agent", a.ID(), "findings", len(out), "elapsed", time.Since(start))
	return out
}

// admit drops findings that reference rules outside the active set, or
// LOCAL rules under the international variant.
func (e *Engine) admit(findings []core.Finding, rules *lint.RuleSet, lctx core.LintContext, log *slog.Logger) []core.Finding {
	out := findings[:0]
	for _, f := range findings {
		rule, ok := rules.Get(f.RuleID)
		if !ok {
			log.Warn("dropping finding for unknown rule", "finding", f.ID, "rule", f.RuleID)
			continue
		}
		if lctx.Variant == core.VariantInternational && rule.Source == lint.SourceLocal {
			log.Warn("dropping local rule finding", "finding", f.ID, "variant", lctx.Variant)
			continue
		}
		out = append(out, f)
	}
	return out
}
