package core

import (
	"encoding/json"
	"sort"
)

// =============================================================================
// Findings
// =============================================================================

// Provenance records how a finding was produced.
type Provenance int

// Provenance values.
const (
	// ProvenanceDeterministic marks findings produced by pattern or code checks.
	ProvenanceDeterministic Provenance = iota
	// ProvenanceAugmented marks findings produced by the augmentation capability.
	ProvenanceAugmented
)

// String returns the string representation of the provenance.
func (p Provenance) String() string {
	if p == ProvenanceAugmented {
		return "augmented"
	}
	return "deterministic"
}

// Position is a span of the document text, in byte offsets.
// Line is 1-based; zero means unknown.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Line  int `json:"line,omitempty"`
}

// Finding is one reported issue against a document, tied to a rule and an agent.
// Findings are values; nothing mutates them after creation.
type Finding struct {
	ID         string     `json:"id"`
	RuleID     string     `json:"rule_id"`
	Agent      string     `json:"agent"`
	Category   string     `json:"category"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Details    string     `json:"details,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"`
	Snippet    string     `json:"snippet,omitempty"`
	Section    string     `json:"section,omitempty"`
	Position   *Position  `json:"position,omitempty"`
	Provenance Provenance `json:"-"`
	CheckType  string     `json:"check_type"`
}

// LLMGenerated reports whether the finding came from the augmentation capability.
func (f Finding) LLMGenerated() bool {
	return f.Provenance == ProvenanceAugmented
}

// sortStart is the ordering key for a finding's position.
// Document-level findings (no position) sort before positioned ones.
func (f Finding) sortStart() int {
	if f.Position == nil {
		return -1
	}
	return f.Position.Start
}

// MarshalJSON exposes provenance as the llmGenerated flag.
func (f Finding) MarshalJSON() ([]byte, error) {
	type plain Finding
	return json.Marshal(struct {
		plain
		LLMGenerated bool `json:"llmGenerated"`
	}{plain(f), f.LLMGenerated()})
}

// UnmarshalJSON restores provenance from the llmGenerated flag.
func (f *Finding) UnmarshalJSON(data []byte) error {
	type plain Finding
	var aux struct {
		plain
		LLMGenerated bool `json:"llmGenerated"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = Finding(aux.plain)
	if aux.LLMGenerated {
		f.Provenance = ProvenanceAugmented
	}
	return nil
}

// LessFinding defines the total order of findings within one lint operation:
// position start ascending, then rule id, then agent, id and message.
func LessFinding(a, b Finding) bool {
	if sa, sb := a.sortStart(), b.sortStart(); sa != sb {
		return sa < sb
	}
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	if a.Agent != b.Agent {
		return a.Agent < b.Agent
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Message < b.Message
}

// SortFindings sorts findings in place into their canonical order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return LessFinding(findings[i], findings[j])
	})
}

// =============================================================================
// Summary
// =============================================================================

// Summary holds aggregate counts by severity.
// It is always derived from a finding list, never stored on its own.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Summarize counts findings by severity.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}
