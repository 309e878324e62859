package agents

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

const surname = `[A-ZÁÉÍÓÚÑ][A-Za-zÁÉÍÓÚÑáéíóúñü]+`

var (
	citeParenthetical = regexp.MustCompile(`\((` + surname + `),\s*(\d{4})\)`)
	citeNarrative     = regexp.MustCompile(`(` + surname + `)\s*\((\d{4})\)`)
	citeNoComma       = regexp.MustCompile(`\((` + surname + `)\s+(\d{4})\)`)
	citeNarrativeComa = regexp.MustCompile(`(` + surname + `),\s*(\d{4}),`)
	citeManyAuthors   = regexp.MustCompile(`\((` + surname + `[^(),&]*,[^()&]+(?:&| y )[^()]+?),\s*(\d{4})\)`)
)

// NewInTextCitations returns the INTEXTCITATIONS agent.
func NewInTextCitations() *lint.RuleAgent {
	return lint.NewRuleAgent(InTextCitations, CategoryCitations).
		Check("CUN-IC-001", citationsPresent).
		Check("CUN-IC-002", matchAll(citeNoComma, "cita parentética sin coma entre apellido y año")).
		Check("CUN-IC-003", matchAll(citeNarrativeComa, "cita narrativa con el año entre comas")).
		Check("CUN-IC-004", matchAll(citeManyAuthors, "tres o más autores listados en lugar de et al.")).
		Check("CUN-IC-005", citedWithoutReference).
		Check("CUN-IC-006", referencedWithoutCitation)
}

// citationBody returns the text preceding the references section, where
// in-text citations live.
func citationBody(doc *document.Document) string {
	if h, ok := doc.Section("REFERENCIAS"); ok {
		return doc.Text()[:h.Start]
	}
	return doc.Text()
}

// citedPairs maps each cited pair to the span of its first citation.
func citedPairs(text string) map[authorYear][2]int {
	out := make(map[authorYear][2]int)
	for _, re := range []*regexp.Regexp{citeParenthetical, citeNarrative} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			p := authorYear{Author: document.Fold(text[m[2]:m[3]]), Year: text[m[4]:m[5]]}
			if prev, ok := out[p]; !ok || m[0] < prev[0] {
				out[p] = [2]int{m[0], m[1]}
			}
		}
	}
	return out
}

func citationsPresent(in *lint.CheckInput) ([]lint.Violation, error) {
	if _, ok := in.Doc.Section("REFERENCIAS"); !ok {
		return nil, nil
	}
	body := citationBody(in.Doc)
	if citeParenthetical.MatchString(body) || citeNarrative.MatchString(body) {
		return nil, nil
	}
	return []lint.Violation{{
		Detail: "hay lista de referencias pero ninguna cita autor-año en el texto",
		Key:    "none",
	}}, nil
}

func matchAll(re *regexp.Regexp, detail string) lint.CheckFunc {
	return func(in *lint.CheckInput) ([]lint.Violation, error) {
		body := citationBody(in.Doc)
		var out []lint.Violation
		for _, m := range re.FindAllStringIndex(body, -1) {
			out = append(out, lint.Violation{Detail: detail}.At(m[0], m[1]))
		}
		return out, nil
	}
}

func citedWithoutReference(in *lint.CheckInput) ([]lint.Violation, error) {
	_, entries, ok := referenceList(in.Doc)
	if !ok {
		return nil, nil
	}
	refs := referencePairs(entries)
	cited := citedPairs(citationBody(in.Doc))

	missing := make([]authorYear, 0)
	for p := range cited {
		if _, ok := refs[p]; !ok {
			missing = append(missing, p)
		}
	}
	sortPairs(missing)

	out := make([]lint.Violation, 0, len(missing))
	for _, p := range missing {
		span := cited[p]
		out = append(out, lint.Violation{
			Detail: fmt.Sprintf("%s citado sin entrada en referencias", p),
			Key:    p.Author + ":" + p.Year,
		}.At(span[0], span[1]))
	}
	return out, nil
}

func referencedWithoutCitation(in *lint.CheckInput) ([]lint.Violation, error) {
	h, entries, ok := referenceList(in.Doc)
	if !ok {
		return nil, nil
	}
	refs := referencePairs(entries)
	cited := citedPairs(citationBody(in.Doc))

	unused := make([]authorYear, 0)
	for p := range refs {
		if _, ok := cited[p]; !ok {
			unused = append(unused, p)
		}
	}
	sortPairs(unused)

	out := make([]lint.Violation, 0, len(unused))
	for _, p := range unused {
		e := refs[p]
		out = append(out, lint.Violation{
			Detail:  fmt.Sprintf("%s no se cita en el texto", p),
			Key:     p.Author + ":" + p.Year,
			Section: h.Title,
		}.At(e.Start, e.End))
	}
	return out, nil
}

func sortPairs(ps []authorYear) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Author != ps[j].Author {
			return ps[i].Author < ps[j].Author
		}
		return ps[i].Year < ps[j].Year
	})
}
