package lint

import (
	"sort"

	"github.com/leapstack-labs/apalint/pkg/core"
)

// RuleSet is an immutable, loaded rule catalogue. It is safe for concurrent
// use; reloading builds a new RuleSet rather than mutating one.
type RuleSet struct {
	rules    []*Rule
	byID     map[string]*Rule
	byDomain map[string][]*Rule
}

// Selector narrows the rules returned by RulesFor.
type Selector struct {
	DocumentType string
	Variant      core.Variant
}

func newRuleSet(rules []*Rule) *RuleSet {
	rs := &RuleSet{
		rules:    rules,
		byID:     make(map[string]*Rule, len(rules)),
		byDomain: make(map[string][]*Rule),
	}
	for _, r := range rules {
		rs.byID[r.ID] = r
		rs.byDomain[r.Domain] = append(rs.byDomain[r.Domain], r)
	}
	return rs
}

// NewRuleSet builds a RuleSet from already constructed rules, keeping their
// order. Later duplicates of an id are ignored.
func NewRuleSet(rules ...*Rule) *RuleSet {
	seen := make(map[string]bool, len(rules))
	kept := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r == nil || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		r.Order = len(kept)
		kept = append(kept, r)
	}
	return newRuleSet(kept)
}

// RulesFor returns the rules owned by agentID that apply to the selected
// document type and variant, in load order.
//
// The official variant keeps every rule. The international variant drops
// LOCAL rules; STANDARD and MIXED rules remain.
func (rs *RuleSet) RulesFor(agentID string, sel Selector) []*Rule {
	if rs == nil {
		return nil
	}
	var out []*Rule
	for _, r := range rs.byDomain[agentID] {
		if !r.AppliesToType(sel.DocumentType) {
			continue
		}
		if sel.Variant == core.VariantInternational && r.Source == SourceLocal {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Get returns a rule by id.
func (rs *RuleSet) Get(id string) (*Rule, bool) {
	if rs == nil {
		return nil, false
	}
	r, ok := rs.byID[id]
	return r, ok
}

// Has reports whether id is loaded.
func (rs *RuleSet) Has(id string) bool {
	_, ok := rs.Get(id)
	return ok
}

// All returns every rule in load order. The slice must not be modified.
func (rs *RuleSet) All() []*Rule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Domains returns the sorted agent ids that own at least one rule.
func (rs *RuleSet) Domains() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, 0, len(rs.byDomain))
	for d := range rs.byDomain {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of loaded rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}
