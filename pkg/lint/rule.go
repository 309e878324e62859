package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/core"
)

// =============================================================================
// Rule Definitions
// =============================================================================

// Source classifies where a rule's requirement comes from.
type Source string

// Rule sources.
const (
	// SourceStandard rules come from the APA 7 standard itself.
	SourceStandard Source = "STANDARD"
	// SourceLocal rules are institutional adaptations.
	SourceLocal Source = "LOCAL"
	// SourceMixed rules adapt a standard requirement locally.
	SourceMixed Source = "MIXED"
)

// ParseSource normalizes a source name. "APA7" is accepted for STANDARD.
func ParseSource(s string) (Source, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STANDARD", "APA7", "APA":
		return SourceStandard, true
	case "LOCAL":
		return SourceLocal, true
	case "MIXED":
		return SourceMixed, true
	default:
		return "", false
	}
}

// CheckType classifies how a rule is evaluated.
type CheckType string

// Check types.
const (
	CheckRegex       CheckType = "regex"
	CheckStructural  CheckType = "structural"
	CheckSemantic    CheckType = "semantic"
	CheckLLMSemantic CheckType = "llm_semantic"
	CheckScript      CheckType = "script"
)

func parseCheckType(s string) (CheckType, bool) {
	switch ct := CheckType(strings.ToLower(strings.TrimSpace(s))); ct {
	case CheckRegex, CheckStructural, CheckSemantic, CheckLLMSemantic, CheckScript:
		return ct, true
	case "":
		return CheckSemantic, true
	default:
		return "", false
	}
}

// Scope is the part of the document a pattern check inspects.
type Scope string

// Detection scopes.
const (
	ScopeDocument Scope = "document"
	ScopeSection  Scope = "section"
	ScopeLine     Scope = "line"
	ScopeBlock    Scope = "block"
)

// Hints drive the generic pattern checks. Patterns are expected forms: the
// rule is breached when none of them matches. With Forbidden set every match
// is a breach instead.
type Hints struct {
	Scope          Scope
	SectionTargets []string
	Patterns       []*regexp.Regexp
	Forbidden      bool
	Notes          string
}

// AugmentConfig configures delegation of a rule to the augmentation capability.
type AugmentConfig struct {
	Enabled            bool
	Mode               string // validator, classifier, suggester, generator
	PromptTemplateID   string
	MaxChars           int
	ForbiddenBehaviors []string
	AllowedOutputs     []string
	OutputFormat       string
}

// Examples hold short good/bad samples for documentation.
type Examples struct {
	Good []string
	Bad  []string
}

// Rule is a single checkable requirement. Rules are immutable once loaded;
// slices and patterns inside must not be modified by callers.
type Rule struct {
	ID             string
	Domain         string // owning agent id
	ProfileID      string
	Name           string
	Description    string // message template
	Source         Source
	BaseStandard   string
	APAReference   string
	LocalReference string
	Severity       core.Severity
	CheckType      CheckType
	AppliesTo      []string // document types; empty means unrestricted
	Hints          Hints
	Augment        AugmentConfig
	Script         string
	AutoFixHint    string
	Examples       Examples
	Order          int // load position, stable across runs
}

// Augmented reports whether the rule's check is delegated to the augmentation capability.
func (r *Rule) Augmented() bool {
	return r.CheckType == CheckLLMSemantic && r.Augment.Enabled
}

// AppliesToType reports whether the rule applies to documentType.
// Restricted rules never apply to an unknown ("") type.
func (r *Rule) AppliesToType(documentType string) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, t := range r.AppliesTo {
		if t == documentType {
			return true
		}
	}
	return false
}

// Message renders the rule's message template. The placeholders {id},
// {name} and {detail} are replaced; detail may be empty.
func (r *Rule) Message(detail string) string {
	msg := r.Description
	if msg == "" {
		msg = r.Name
	}
	if !strings.Contains(msg, "{") {
		if detail != "" {
			return fmt.Sprintf("%s (%s)", msg, detail)
		}
		return msg
	}
	return strings.NewReplacer("{id}", r.ID, "{name}", r.Name, "{detail}", detail).Replace(msg)
}

// RuleInfo is a serializable view of a Rule for listings and the HTTP API.
type RuleInfo struct {
	ID             string   `json:"id"`
	Domain         string   `json:"domain"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Source         Source   `json:"source"`
	Severity       string   `json:"severity"`
	CheckType      string   `json:"check_type"`
	AppliesTo      []string `json:"applies_to,omitempty"`
	Augmented      bool     `json:"augmented"`
	APAReference   string   `json:"apa_reference,omitempty"`
	LocalReference string   `json:"local_reference,omitempty"`
	AutoFixHint    string   `json:"auto_fix_hint,omitempty"`
	DocURL         string   `json:"doc_url"`
}

// Info returns the serializable view of r.
func (r *Rule) Info() RuleInfo {
	return RuleInfo{
		ID:             r.ID,
		Domain:         r.Domain,
		Name:           r.Name,
		Description:    r.Description,
		Source:         r.Source,
		Severity:       r.Severity.String(),
		CheckType:      string(r.CheckType),
		AppliesTo:      r.AppliesTo,
		Augmented:      r.Augmented(),
		APAReference:   r.APAReference,
		LocalReference: r.LocalReference,
		AutoFixHint:    r.AutoFixHint,
		DocURL:         BuildDocURL(r.ID),
	}
}
