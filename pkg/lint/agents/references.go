package agents

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	referenceYear   = regexp.MustCompile(`(?i)\((\d{4}[a-z]?|s\.\s?f\.|en prensa|in press)[,)]`)
	referenceAuthor = regexp.MustCompile(`^([A-ZÁÉÍÓÚÑ][A-Za-zÁÉÍÓÚÑáéíóúñü\- ]+?),.*\((\d{4})[a-z]?[,)]`)
)

// NewReferences returns the REFERENCES agent.
func NewReferences() *lint.RuleAgent {
	return lint.NewRuleAgent(References, CategoryReferences).
		Check("CUN-REF-001", alphabeticalOrder).
		Check("CUN-REF-003", entriesHaveYear).
		Check("CUN-REF-006", referencesHeader)
}

// entry is one reference list item, possibly spanning several lines.
type entry struct {
	Text  string
	Start int
	End   int
}

// referenceList returns the heading and entries of the references section.
// Lines starting with a lowercase letter, a digit or a URL continue the
// previous entry.
func referenceList(doc *document.Document) (document.Heading, []entry, bool) {
	h, ok := doc.Section("REFERENCIAS")
	if !ok {
		return document.Heading{}, nil, false
	}
	var entries []entry
	for _, ln := range doc.BodyLines(h) {
		if len(entries) > 0 && continuesEntry(ln.Trimmed) {
			last := &entries[len(entries)-1]
			last.Text += " " + ln.Trimmed
			last.End = ln.End
			continue
		}
		entries = append(entries, entry{Text: ln.Trimmed, Start: ln.Start, End: ln.End})
	}
	return h, entries, true
}

func continuesEntry(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	if unicode.IsLower(r) || unicode.IsDigit(r) {
		return true
	}
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "http") || strings.HasPrefix(lower, "doi")
}

// authorYear is a (folded surname, year) pair used to match citations and references.
type authorYear struct {
	Author string
	Year   string
}

func (p authorYear) String() string {
	return fmt.Sprintf("%s (%s)", titleCase(p.Author), p.Year)
}

func referencePairs(entries []entry) map[authorYear]entry {
	out := make(map[authorYear]entry)
	for _, e := range entries {
		m := referenceAuthor.FindStringSubmatch(e.Text)
		if m == nil {
			continue
		}
		p := authorYear{Author: document.Fold(m[1]), Year: m[2]}
		if _, dup := out[p]; !dup {
			out[p] = e
		}
	}
	return out
}

func alphabeticalOrder(in *lint.CheckInput) ([]lint.Violation, error) {
	h, entries, ok := referenceList(in.Doc)
	if !ok || len(entries) < 2 {
		return nil, nil
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if f := strings.Fields(e.Text); len(f) > 0 {
			keys = append(keys, strings.Trim(document.Fold(f[0]), ",."))
		}
	}
	if sort.StringsAreSorted(keys) {
		return nil, nil
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] < keys[i-1] {
			e := entries[i]
			return []lint.Violation{lint.Violation{
				Detail:  fmt.Sprintf("%q aparece después de %q", firstWord(e.Text), firstWord(entries[i-1].Text)),
				Key:     "order",
				Section: h.Title,
			}.At(e.Start, e.End)}, nil
		}
	}
	return nil, nil
}

func entriesHaveYear(in *lint.CheckInput) ([]lint.Violation, error) {
	h, entries, ok := referenceList(in.Doc)
	if !ok {
		return nil, nil
	}
	var out []lint.Violation
	for _, e := range entries {
		if referenceYear.MatchString(e.Text) {
			continue
		}
		out = append(out, lint.Violation{
			Detail:  "entrada sin año entre paréntesis",
			Section: h.Title,
		}.At(e.Start, e.End))
	}
	return out, nil
}

// referencesHeader flags a "Bibliografía" heading used instead of "Referencias".
func referencesHeader(in *lint.CheckInput) ([]lint.Violation, error) {
	h, ok := in.Doc.Heading("BIBLIOGRAFIA")
	if !ok {
		return nil, nil
	}
	if _, has := in.Doc.Heading("REFERENCIAS", "REFERENCES"); has {
		return nil, nil
	}
	return []lint.Violation{lint.Violation{
		Detail:     h.Title,
		Suggestion: "Usa el encabezado \"Referencias\".",
		Key:        "header",
	}.At(h.Start, h.End)}, nil
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return strings.TrimRight(f[0], ",.")
	}
	return s
}

// titleCase renders a folded surname for messages. Casers are stateful,
// so one is created per call.
func titleCase(folded string) string {
	return cases.Title(language.Spanish).String(strings.ToLower(folded))
}
