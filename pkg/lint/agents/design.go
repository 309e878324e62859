package agents

import (
	"strings"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// ResearchTypes are the document types the SCIENTIFICDESIGN rules target.
var ResearchTypes = []string{"tesis", "articulo", "reporte_investigacion", "informe"}

// NewScientificDesign returns the SCIENTIFICDESIGN agent.
func NewScientificDesign() *lint.RuleAgent {
	return lint.NewRuleAgent(ScientificDesign, CategoryScientificDesign).
		Check("CUN-SD-001", problemOrObjectives).
		Check("CUN-SD-002", requireSections("METODO")).
		Check("CUN-SD-003", requireSections("RESULTADOS", "DISCUSION")).
		Check("CUN-SD-004", imrydOrder).
		Check("CUN-SD-005", objectivesAndConclusions).
		Check("CUN-SD-006", limitationsMentioned)
}

// foldedLines returns the folded text of every non-empty line.
func foldedLines(doc *document.Document) []string {
	out := make([]string, 0, len(doc.Lines()))
	for _, ln := range doc.Lines() {
		if ln.Trimmed != "" {
			out = append(out, document.Fold(ln.Trimmed))
		}
	}
	return out
}

func anyLineContains(lines []string, needles ...string) bool {
	for _, ln := range lines {
		for _, n := range needles {
			if strings.Contains(ln, n) {
				return true
			}
		}
	}
	return false
}

func problemOrObjectives(in *lint.CheckInput) ([]lint.Violation, error) {
	lines := foldedLines(in.Doc)
	if anyLineContains(lines, "PROBLEMA DE INVESTIGACION", "PLANTEAMIENTO DEL PROBLEMA", "OBJETIVO GENERAL", "OBJETIVOS") {
		return nil, nil
	}
	return []lint.Violation{{Detail: "no se identifican el problema de investigación ni los objetivos"}}, nil
}

func requireSections(names ...string) lint.CheckFunc {
	return func(in *lint.CheckInput) ([]lint.Violation, error) {
		var missing []string
		for _, n := range names {
			if _, ok := in.Doc.Section(n); !ok {
				missing = append(missing, n)
			}
		}
		if len(missing) == 0 {
			return nil, nil
		}
		return []lint.Violation{{Detail: "faltan " + strings.Join(missing, ", ")}}, nil
	}
}

// imrydOrder checks the usual sequence of research sections once at least
// three of method, results, discussion and conclusions are present.
func imrydOrder(in *lint.CheckInput) ([]lint.Violation, error) {
	line := make(map[string]int)
	for _, n := range []string{"INTRODUCCION", "MARCO", "METODO", "RESULTADOS", "DISCUSION", "CONCLUSIONES"} {
		if h, ok := in.Doc.Section(n); ok {
			line[n] = h.Line
		}
	}
	present := 0
	for _, n := range []string{"METODO", "RESULTADOS", "DISCUSION", "CONCLUSIONES"} {
		if _, ok := line[n]; ok {
			present++
		}
	}
	if present < 3 {
		return nil, nil
	}

	pairs := [][2]string{
		{"INTRODUCCION", "METODO"},
		{"MARCO", "METODO"},
		{"METODO", "RESULTADOS"},
		{"RESULTADOS", "DISCUSION"},
		{"DISCUSION", "CONCLUSIONES"},
	}
	for _, p := range pairs {
		a, okA := line[p[0]]
		b, okB := line[p[1]]
		if okA && okB && a > b {
			return []lint.Violation{{
				Detail: strings.ToLower(p[1]) + " aparece antes de " + strings.ToLower(p[0]),
				Key:    "order",
			}}, nil
		}
	}
	return nil, nil
}

func objectivesAndConclusions(in *lint.CheckInput) ([]lint.Violation, error) {
	lines := foldedLines(in.Doc)
	var missing []string
	if !anyLineContains(lines, "OBJETIVO GENERAL", "OBJETIVOS ESPECIFICOS") {
		missing = append(missing, "objetivos")
	}
	if !anyLineContains(lines, "CONCLUSIONES", "CONCLUSION") {
		missing = append(missing, "conclusiones")
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return []lint.Violation{{Detail: "no se detectan " + strings.Join(missing, " ni ")}}, nil
}

func limitationsMentioned(in *lint.CheckInput) ([]lint.Violation, error) {
	if anyLineContains(foldedLines(in.Doc), "LIMITACIONES", "LIMITES DEL ESTUDIO", "LIMITATIONS") {
		return nil, nil
	}
	return []lint.Violation{{Detail: "no se mencionan las limitaciones del estudio"}}, nil
}
