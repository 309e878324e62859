// Package review aggregates lint findings into an executive summary and an
// institutional policy score. It never looks at the document text.
package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/core"
)

// Status is the overall verdict for a document.
type Status string

// Review statuses.
const (
	StatusOK               Status = "OK"
	StatusNeedsImprovement Status = "NEEDS_IMPROVEMENT"
	StatusCritical         Status = "CRITICAL"
)

// MaxTopIssues caps Review.TopIssues.
const MaxTopIssues = 5

// Score penalties.
const (
	errorPenalty   = 5
	warningPenalty = 2
)

// CategoryPriority is the order in which categories should be fixed.
// Categories not listed follow in order of first appearance.
var CategoryPriority = []string{
	"structure",
	"citations",
	"references",
	"math_format",
	"math_equations",
	"code_format",
	"code_blocks",
	"academic_style",
	"format",
	"layout",
	"metadata",
}

// CriticalCategories are the categories the policy score reports on.
var CriticalCategories = []string{"structure", "citations", "references"}

// CategoryIssues counts findings of one category by severity.
type CategoryIssues struct {
	Category string `json:"category"`
	Errors   int    `json:"error_count"`
	Warnings int    `json:"warning_count"`
	Info     int    `json:"suggestion_count"`
}

// Total returns the number of findings in the category.
func (c CategoryIssues) Total() int { return c.Errors + c.Warnings + c.Info }

// TopIssue is one category worth fixing first.
type TopIssue struct {
	Category        string        `json:"issue_type"`
	Severity        core.Severity `json:"severity"`
	Message         string        `json:"message"`
	Count           int           `json:"count"`
	SuggestedAction string        `json:"suggested_action"`
}

// Policy is the institutional compliance result.
type Policy struct {
	Type   string   `json:"policy_type"`
	Score  int      `json:"score"`
	Passed []string `json:"passed_policies"`
	Failed []string `json:"failed_policies"`
}

// Review is the aggregated view of one lint result.
type Review struct {
	Status     Status           `json:"main_status"`
	Categories []CategoryIssues `json:"issues_by_category"`
	TopIssues  []TopIssue       `json:"top_issues"`
	FixOrder   []string         `json:"suggested_fix_order"`
	Policy     Policy           `json:"policy_compliance"`
	Notes      string           `json:"notes,omitempty"`
}

// Summarize builds a Review from findings.
func Summarize(findings []core.Finding, lctx core.LintContext, profile core.DocumentProfile) Review {
	cats := groupByCategory(findings)
	policy := evaluatePolicy(findings, lctx)
	errors := core.Summarize(findings).Errors
	status := mainStatus(policy.Score, errors)
	return Review{
		Status:     status,
		Categories: cats,
		TopIssues:  topIssues(cats),
		FixOrder:   fixOrder(cats),
		Policy:     policy,
		Notes:      notes(profile, policy, status),
	}
}

// Score returns 100 minus 5 per error and 2 per warning, floored at 0.
func Score(findings []core.Finding) int {
	s := core.Summarize(findings)
	score := 100 - errorPenalty*s.Errors - warningPenalty*s.Warnings
	if score < 0 {
		return 0
	}
	return score
}

func groupByCategory(findings []core.Finding) []CategoryIssues {
	var out []CategoryIssues
	index := make(map[string]int)
	for _, f := range findings {
		i, ok := index[f.Category]
		if !ok {
			i = len(out)
			index[f.Category] = i
			out = append(out, CategoryIssues{Category: f.Category})
		}
		switch f.Severity {
		case core.SeverityError:
			out[i].Errors++
		case core.SeverityWarning:
			out[i].Warnings++
		default:
			out[i].Info++
		}
	}
	return out
}

func topIssues(cats []CategoryIssues) []TopIssue {
	sorted := make([]CategoryIssues, len(cats))
	copy(sorted, cats)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Errors != b.Errors {
			return a.Errors > b.Errors
		}
		if a.Warnings != b.Warnings {
			return a.Warnings > b.Warnings
		}
		return a.Category < b.Category
	})
	if len(sorted) > MaxTopIssues {
		sorted = sorted[:MaxTopIssues]
	}

	out := make([]TopIssue, 0, len(sorted))
	for _, c := range sorted {
		sev := core.SeverityInfo
		switch {
		case c.Errors > 0:
			sev = core.SeverityError
		case c.Warnings > 0:
			sev = core.SeverityWarning
		}
		out = append(out, TopIssue{
			Category:        c.Category,
			Severity:        sev,
			Message:         categoryMessage(c.Category),
			Count:           c.Total(),
			SuggestedAction: categoryAction(c.Category),
		})
	}
	return out
}

func fixOrder(cats []CategoryIssues) []string {
	present := make(map[string]bool, len(cats))
	for _, c := range cats {
		present[c.Category] = true
	}
	out := make([]string, 0, len(cats))
	for _, c := range CategoryPriority {
		if present[c] {
			out = append(out, c)
			delete(present, c)
		}
	}
	for _, c := range cats {
		if present[c.Category] {
			out = append(out, c.Category)
		}
	}
	return out
}

func mainStatus(score, errors int) Status {
	switch {
	case score < 60 || errors > 20:
		return StatusCritical
	case score < 85 || errors > 5:
		return StatusNeedsImprovement
	default:
		return StatusOK
	}
}

func evaluatePolicy(findings []core.Finding, lctx core.LintContext) Policy {
	institution := strings.ToLower(strings.TrimSpace(lctx.Institution))
	if institution == "" {
		institution = "unknown"
	}
	p := Policy{
		Type:   "institutional_apa7_" + strings.ReplaceAll(institution, " ", "_"),
		Score:  Score(findings),
		Passed: []string{},
		Failed: []string{},
	}
	for _, cat := range CriticalCategories {
		n := 0
		for _, f := range findings {
			if f.Category == cat && f.Severity == core.SeverityError {
				n++
			}
		}
		if n == 0 {
			p.Passed = append(p.Passed, "compliance_"+cat)
		} else {
			p.Failed = append(p.Failed, fmt.Sprintf("compliance_%s_%d_errors", cat, n))
		}
	}
	return p
}

func notes(profile core.DocumentProfile, policy Policy, status Status) string {
	var parts []string
	if profile.Confidence > 0 {
		parts = append(parts, fmt.Sprintf("Confianza en perfil: %.0f%%", profile.Confidence*100))
	}
	parts = append(parts, fmt.Sprintf("Cumplimiento de política: %d%%", policy.Score))
	if status == StatusCritical {
		parts = append(parts, "El documento requiere revisión crítica urgente.")
	}
	return strings.Join(parts, " | ")
}

var categoryMessages = map[string]string{
	"structure":         "Problemas en la estructura del documento",
	"citations":         "Inconsistencias en las citas",
	"references":        "Errores en la lista de referencias",
	"math_format":       "Formateo incorrecto de ecuaciones",
	"math_equations":    "Errores en ecuaciones matemáticas",
	"code_format":       "Formateo incorrecto de código",
	"code_blocks":       "Problemas en bloques de código",
	"academic_style":    "Estilo académico incorrecto",
	"format":            "Problemas de formato general",
	"layout":            "Problemas de maquetación",
	"metadata":          "Inconsistencias en metadatos",
	"scientific_design": "Debilidades en el diseño científico",
	"document_profile":  "Dudas sobre el tipo de documento",
}

var categoryActions = map[string]string{
	"structure":         "Revisa la estructura del documento y asegura que contenga todas las secciones requeridas en el orden correcto.",
	"citations":         "Verifica que todas las citas en texto sigan el formato APA7 correcto.",
	"references":        "Revisa la lista de referencias para asegurar que cumple con el formato APA7.",
	"math_format":       "Corrige el formateo de todas las ecuaciones matemáticas según APA7.",
	"math_equations":    "Verifica la correcta escritura y numeración de ecuaciones.",
	"code_format":       "Asegura que el código sigue las convenciones de formato establecidas.",
	"code_blocks":       "Verifica que los bloques de código estén correctamente formateados.",
	"academic_style":    "Mejora el estilo académico del documento.",
	"format":            "Corrige los problemas de formato general del documento.",
	"layout":            "Ajusta la maquetación del documento según los estándares requeridos.",
	"metadata":          "Actualiza los metadatos del documento para asegurar consistencia.",
	"scientific_design": "Explicita el problema, los objetivos, el método y las limitaciones del estudio.",
	"document_profile":  "Declara el tipo de documento para aplicar las reglas correctas.",
}

func categoryMessage(cat string) string {
	if m, ok := categoryMessages[cat]; ok {
		return m
	}
	return "Problemas en " + cat
}

func categoryAction(cat string) string {
	if a, ok := categoryActions[cat]; ok {
		return a
	}
	return "Corrige los problemas en " + cat + "."
}
