package lint

import (
	"github.com/leapstack-labs/apalint/pkg/document"
)

// DefaultMaxMatches bounds the violations a pattern check reports per rule.
// Override per rule with the "max_matches" option.
const DefaultMaxMatches = 10

// PatternCheck evaluates the rule's patterns over the document, or with
// section scope over the bodies of the target sections. Expected patterns
// yield one violation when nothing matches; forbidden patterns yield one
// violation per match.
func PatternCheck(in *CheckInput) ([]Violation, error) {
	rule := in.Rule
	if len(rule.Hints.Patterns) == 0 {
		return nil, nil
	}

	var regions []region
	if rule.Hints.Scope == ScopeSection && len(rule.Hints.SectionTargets) > 0 {
		for _, target := range rule.Hints.SectionTargets {
			h, ok := in.Doc.Section(target)
			if !ok {
				continue
			}
			body, start := in.Doc.Body(h)
			regions = append(regions, region{text: body, offset: start, section: h.Title})
		}
		if len(regions) == 0 {
			// Missing sections are reported by structural rules.
			return nil, nil
		}
	} else {
		regions = append(regions, region{text: in.Doc.Text()})
	}

	if rule.Hints.Forbidden {
		return forbiddenMatches(rule, regions, in.Options.Int("max_matches", DefaultMaxMatches)), nil
	}

	for _, re := range rule.Hints.Patterns {
		for _, r := range regions {
			if re.MatchString(r.text) {
				return nil, nil
			}
		}
	}
	v := Violation{Detail: "no se encontró el patrón esperado"}
	if len(regions) == 1 && regions[0].section != "" {
		v.Section = regions[0].section
	}
	return []Violation{v}, nil
}

type region struct {
	text    string
	offset  int
	section string
}

func forbiddenMatches(rule *Rule, regions []region, limit int) []Violation {
	var out []Violation
	for _, re := range rule.Hints.Patterns {
		for _, r := range regions {
			for _, m := range re.FindAllStringIndex(r.text, -1) {
				if m[0] == m[1] {
					continue
				}
				if limit > 0 && len(out) >= limit {
					return out
				}
				out = append(out, Violation{
					Detail:  r.text[m[0]:m[1]],
					Section: r.section,
				}.At(r.offset+m[0], r.offset+m[1]))
			}
		}
	}
	return out
}

// StructuralCheck reports each target section missing from the document.
// When every target is present it reports, once, targets that appear out
// of the listed order.
func StructuralCheck(in *CheckInput) ([]Violation, error) {
	targets := in.Rule.Hints.SectionTargets
	if len(targets) == 0 {
		return nil, nil
	}

	var out []Violation
	lines := make([]int, 0, len(targets))
	for _, target := range targets {
		h, ok := in.Doc.Section(target)
		if !ok {
			out = append(out, Violation{Detail: target, Key: document.Fold(target)})
			continue
		}
		lines = append(lines, h.Line)
	}
	if len(out) > 0 || !in.Options.Bool("check_order", len(targets) > 1) {
		return out, nil
	}

	for i := 1; i < len(lines); i++ {
		if lines[i] < lines[i-1] {
			h, _ := in.Doc.Section(targets[i])
			return []Violation{Violation{
				Detail:  targets[i] + " fuera de orden",
				Key:     "order",
				Section: h.Title,
			}.At(h.Start, h.End)}, nil
		}
	}
	return nil, nil
}
