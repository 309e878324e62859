package lint

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
)

// FailureCategory is the category of findings reporting a rule that could not be evaluated.
const FailureCategory = "rule_failure"

// =============================================================================
// Contracts
// =============================================================================

// Agent validates one rule domain of a document.
type Agent interface {
	// ID returns the agent id, which is also the domain of its rules.
	ID() string
	// Evaluate returns the agent's findings. It never fails: rule failures
	// are reported as info findings.
	Evaluate(ctx context.Context, in *Input) []core.Finding
}

// Augmenter evaluates rules delegated to an external capability.
// ok is false when the rule produced no finding for any reason.
type Augmenter interface {
	Run(ctx context.Context, rule *Rule, doc *document.Document, lctx core.LintContext) (f core.Finding, ok bool)
}

// ScriptRunner evaluates rules of check type script.
type ScriptRunner interface {
	RunScript(ctx context.Context, in *CheckInput) ([]Violation, error)
}

// Input is everything an agent needs for one evaluation.
type Input struct {
	Doc       *document.Document
	Context   core.LintContext
	Profile   core.DocumentProfile
	Rules     *RuleSet
	Augmenter Augmenter    // may be nil
	Scripts   ScriptRunner // may be nil
	Config    *Config      // may be nil
	Logger    *slog.Logger // may be nil
}

func (in *Input) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return in.Logger
}

// Selector returns the rule selector for this input. A document type
// declared in the context wins over the detected one.
func (in *Input) Selector() Selector {
	docType := in.Context.DocumentType
	if docType == "" {
		docType = in.Profile.Type()
	}
	return Selector{DocumentType: docType, Variant: in.Context.Variant}
}

// CheckInput is passed to a single rule check.
type CheckInput struct {
	Ctx     context.Context
	Rule    *Rule
	Doc     *document.Document
	Context core.LintContext
	Profile core.DocumentProfile
	Options Options
}

// CheckFunc evaluates one rule deterministically.
type CheckFunc func(in *CheckInput) ([]Violation, error)

// Violation is one rule breach reported by a check.
type Violation struct {
	// Detail fills the {detail} placeholder of the rule message.
	Detail string
	// Message replaces the rule message when set.
	Message    string
	Suggestion string
	Snippet    string
	Section    string
	// Key distinguishes several violations of the same rule in finding ids.
	Key        string
	Start, End int
	Positioned bool
}

// At returns a copy of v positioned at [start, end).
func (v Violation) At(start, end int) Violation {
	v.Start, v.End, v.Positioned = start, end, true
	return v
}

// CheckError records a rule check that failed or panicked.
type CheckError struct {
	Agent  string
	RuleID string
	Err    error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("agent %s: rule %s: %v", e.Agent, e.RuleID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *CheckError) Unwrap() []error {
	return []error{core.ErrAgentExecution, e.Err}
}

// =============================================================================
// RuleAgent
// =============================================================================

// RuleAgent evaluates the rules of one domain with registered checks,
// falling back to generic pattern checks driven by rule hints.
type RuleAgent struct {
	id       string
	category string
	checks   map[string]CheckFunc
}

// NewRuleAgent creates an agent for domain id reporting findings under category.
func NewRuleAgent(id, category string) *RuleAgent {
	return &RuleAgent{id: id, category: category, checks: make(map[string]CheckFunc)}
}

// Check registers fn as the deterministic check for ruleID.
func (a *RuleAgent) Check(ruleID string, fn CheckFunc) *RuleAgent {
	a.checks[ruleID] = fn
	return a
}

// ID implements Agent.
func (a *RuleAgent) ID() string { return a.id }

// Category returns the category assigned to the agent's findings.
func (a *RuleAgent) Category() string { return a.category }

// HasCheck reports whether a check is registered for ruleID.
func (a *RuleAgent) HasCheck(ruleID string) bool {
	_, ok := a.checks[ruleID]
	return ok
}

// Evaluate implements Agent.
func (a *RuleAgent) Evaluate(ctx context.Context, in *Input) []core.Finding {
	log := in.logger().With("agent", a.id)
	var findings []core.Finding

	for _, rule := range in.Rules.RulesFor(a.id, in.Selector()) {
		if ctx.Err() != nil {
			break
		}
		if in.Config.IsDisabled(rule.ID) {
			continue
		}

		if rule.Augmented() {
			if in.Augmenter == nil {
				continue
			}
			if f, ok := in.Augmenter.Run(ctx, rule, in.Doc, in.Context); ok {
				f.Agent = a.id
				f.Category = a.category
				f.Severity = in.Config.GetSeverity(rule.ID, f.Severity)
				findings = append(findings, f)
			}
			continue
		}

		violations, err := a.runCheck(ctx, rule, in)
		if err != nil {
			cerr := &CheckError{Agent: a.id, RuleID: rule.ID, Err: err}
			log.Warn("rule check failed", "rule", rule.ID, "error", err)
			findings = append(findings, FailureFinding(a.id, rule, cerr))
			continue
		}
		sev := in.Config.GetSeverity(rule.ID, rule.Severity)
		for i, v := range violations {
			findings = append(findings, a.finding(rule, sev, v, i, len(violations), in.Doc))
		}
	}
	return findings
}

func (a *RuleAgent) runCheck(ctx context.Context, rule *Rule, in *Input) (vs []Violation, err error) {
	defer func() {
		if r := recover(); r != nil {
			vs, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	cin := &CheckInput{
		Ctx:     ctx,
		Rule:    rule,
		Doc:     in.Doc,
		Context: in.Context,
		Profile: in.Profile,
		Options: in.Config.GetRuleOptions(rule.ID),
	}

	if fn, ok := a.checks[rule.ID]; ok {
		return fn(cin)
	}
	switch rule.CheckType {
	case CheckRegex:
		return PatternCheck(cin)
	case CheckStructural:
		return StructuralCheck(cin)
	case CheckScript:
		if in.Scripts == nil {
			return nil, nil
		}
		return in.Scripts.RunScript(ctx, cin)
	}
	return nil, nil
}

func (a *RuleAgent) finding(rule *Rule, sev core.Severity, v Violation, i, n int, doc *document.Document) core.Finding {
	msg := v.Message
	if msg == "" {
		msg = rule.Message(v.Detail)
	}
	suggestion := v.Suggestion
	if suggestion == "" {
		suggestion = rule.AutoFixHint
	}

	key := v.Key
	switch {
	case key != "":
	case v.Positioned:
		key = strconv.Itoa(v.Start)
	case n > 1:
		key = "n" + strconv.Itoa(i+1)
	}
	id := a.id + ":" + rule.ID
	if key != "" {
		id += ":" + key
	}

	f := core.Finding{
		ID:         id,
		RuleID:     rule.ID,
		Agent:      a.id,
		Category:   a.category,
		Severity:   sev,
		Message:    msg,
		Details:    v.Detail,
		Suggestion: suggestion,
		Snippet:    v.Snippet,
		Section:    v.Section,
		Provenance: core.ProvenanceDeterministic,
		CheckType:  string(rule.CheckType),
	}
	if v.Positioned {
		f.Position = &core.Position{Start: v.Start, End: v.End, Line: doc.LineAt(v.Start)}
		if f.Snippet == "" {
			f.Snippet = doc.Snippet(v.Start, v.End)
		}
	}
	return f
}

// FailureFinding reports a rule that could not be evaluated.
func FailureFinding(agentID string, rule *Rule, err error) core.Finding {
	return core.Finding{
		ID:         agentID + ":" + rule.ID + ":failure",
		RuleID:     rule.ID,
		Agent:      agentID,
		Category:   FailureCategory,
		Severity:   core.SeverityInfo,
		Message:    fmt.Sprintf("La regla %s no pudo evaluarse: %v", rule.ID, unwrapCause(err)),
		Provenance: core.ProvenanceDeterministic,
		CheckType:  string(rule.CheckType),
	}
}

func unwrapCause(err error) error {
	if ce, ok := err.(*CheckError); ok && ce.Err != nil {
		return ce.Err
	}
	return err
}
