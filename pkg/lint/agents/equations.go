package agents

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

var (
	equationLine      = regexp.MustCompile(`[A-Za-zÁÉÍÓÚÑ0-9)\]]\s*=\s*[-+*/A-Za-zÁÉÍÓÚÑ0-9]`)
	equationNumber    = regexp.MustCompile(`\((\d{1,3})\)\s*$`)
	equationReference = regexp.MustCompile(`(?i)ecuaci[óo]n(?:es)?\s*\((\d{1,3})\)`)
)

// NewEquations returns the EQUATIONS agent.
func NewEquations() *lint.RuleAgent {
	return lint.NewRuleAgent(Equations, CategoryEquations).
		Check("CUN-ME-001", sequentialNumbering).
		Check("CUN-ME-002", referencedEquationsExist).
		Check("CUN-ME-003", numberedEquationsReferenced)
}

type equation struct {
	Number int
	Line   document.Line
}

// numberedEquations returns lines that look like equations and end with a
// "(n)" label.
func numberedEquations(doc *document.Document) []equation {
	var out []equation
	for _, ln := range doc.Lines() {
		if ln.Trimmed == "" || !equationLine.MatchString(ln.Trimmed) {
			continue
		}
		m := equationNumber.FindStringSubmatch(ln.Trimmed)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		out = append(out, equation{Number: n, Line: ln})
	}
	return out
}

// equationReferences maps each referenced number to the span of its first mention.
func equationReferences(doc *document.Document) map[int][2]int {
	out := make(map[int][2]int)
	text := doc.Text()
	for _, m := range equationReference.FindAllStringSubmatchIndex(text, -1) {
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		if _, seen := out[n]; !seen {
			out[n] = [2]int{m[0], m[1]}
		}
	}
	return out
}

func sequentialNumbering(in *lint.CheckInput) ([]lint.Violation, error) {
	eqs := numberedEquations(in.Doc)
	if len(eqs) <= 1 {
		return nil, nil
	}
	seen := make(map[int]bool)
	var dups []string
	for _, e := range eqs {
		if seen[e.Number] {
			dups = append(dups, strconv.Itoa(e.Number))
		}
		seen[e.Number] = true
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	consecutive := nums[len(nums)-1]-nums[0] == len(nums)-1
	if consecutive && len(dups) == 0 {
		return nil, nil
	}

	var issues []string
	if !consecutive {
		issues = append(issues, fmt.Sprintf("numeración detectada %s", joinInts(nums)))
	}
	if len(dups) > 0 {
		issues = append(issues, "números repetidos "+strings.Join(dups, ", "))
	}
	return []lint.Violation{{Detail: strings.Join(issues, "; "), Key: "sequence"}}, nil
}

func referencedEquationsExist(in *lint.CheckInput) ([]lint.Violation, error) {
	numbered := make(map[int]bool)
	for _, e := range numberedEquations(in.Doc) {
		numbered[e.Number] = true
	}
	refs := equationReferences(in.Doc)

	var missing []int
	for n := range refs {
		if !numbered[n] {
			missing = append(missing, n)
		}
	}
	sort.Ints(missing)

	out := make([]lint.Violation, 0, len(missing))
	for _, n := range missing {
		span := refs[n]
		out = append(out, lint.Violation{
			Detail: fmt.Sprintf("se cita la ecuación (%d) pero no existe", n),
			Key:    "eq" + strconv.Itoa(n),
		}.At(span[0], span[1]))
	}
	return out, nil
}

func numberedEquationsReferenced(in *lint.CheckInput) ([]lint.Violation, error) {
	refs := equationReferences(in.Doc)
	var out []lint.Violation
	seen := make(map[int]bool)
	for _, e := range numberedEquations(in.Doc) {
		if _, ok := refs[e.Number]; ok || seen[e.Number] {
			continue
		}
		seen[e.Number] = true
		out = append(out, lint.Violation{
			Detail: fmt.Sprintf("la ecuación (%d) no se menciona en el texto", e.Number),
			Key:    "eq" + strconv.Itoa(e.Number),
		}.At(e.Line.Start, e.Line.End))
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
