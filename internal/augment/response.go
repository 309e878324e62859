package augment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// item is one entry of a JSON_FINDINGS_V1 answer.
type item struct {
	Complies    *bool  `json:"complies"`
	Message     string `json:"message"`
	Details     string `json:"details"`
	Snippet     string `json:"snippet"`
	Suggestion  string `json:"suggestion"`
	OffsetStart *int   `json:"offset_start"`
	OffsetEnd   *int   `json:"offset_end"`
}

type findingsAnswer struct {
	Findings *[]item `json:"findings"`
}

// jsonObject returns the outermost JSON object in raw, tolerating code
// fences and surrounding prose.
func jsonObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object", ErrInvalidResponse)
	}
	return raw[start : end+1], nil
}

// parseFindings decodes a JSON_FINDINGS_V1 answer.
func parseFindings(raw string) ([]item, error) {
	obj, err := jsonObject(raw)
	if err != nil {
		return nil, err
	}
	var ans findingsAnswer
	if err := json.Unmarshal([]byte(obj), &ans); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if ans.Findings == nil {
		return nil, fmt.Errorf("%w: missing findings", ErrInvalidResponse)
	}
	for i, it := range *ans.Findings {
		if it.Complies == nil {
			return nil, fmt.Errorf("%w: findings[%d] lacks complies", ErrInvalidResponse, i)
		}
	}
	return *ans.Findings, nil
}

// firstBreach returns the first non-compliant item.
func firstBreach(items []item) (item, bool) {
	for _, it := range items {
		if !*it.Complies {
			return it, true
		}
	}
	return item{}, false
}

// toFinding converts a breach into a finding. The position comes from the
// snippet when it occurs verbatim in the document, else from offsets that
// fall inside it.
func toFinding(rule *lint.Rule, doc *document.Document, it item) core.Finding {
	msg := strings.TrimSpace(it.Message)
	if msg == "" {
		msg = rule.Message("")
	}
	suggestion := strings.TrimSpace(it.Suggestion)
	if suggestion == "" {
		suggestion = rule.AutoFixHint
	}
	f := core.Finding{
		ID:         rule.Domain + ":" + rule.ID + ":llm",
		RuleID:     rule.ID,
		Agent:      rule.Domain,
		Severity:   rule.Severity,
		Message:    msg,
		Details:    strings.TrimSpace(it.Details),
		Suggestion: suggestion,
		Provenance: core.ProvenanceAugmented,
		CheckType:  string(lint.CheckLLMSemantic),
	}

	snippet := strings.TrimSpace(it.Snippet)
	start, end := -1, -1
	if snippet != "" {
		if i := strings.Index(doc.Text(), snippet); i >= 0 {
			start, end = i, i+len(snippet)
		}
	}
	if start < 0 && it.OffsetStart != nil && it.OffsetEnd != nil {
		s, e := *it.OffsetStart, *it.OffsetEnd
		if s >= 0 && s < e && e <= doc.Len() {
			start, end = doc.RuneBounds(s, e)
		}
	}
	if start >= 0 {
		f.Position = &core.Position{Start: start, End: end, Line: doc.LineAt(start)}
		f.Snippet = doc.Snippet(start, end)
	} else {
		f.Snippet = snippet
	}
	return f
}
