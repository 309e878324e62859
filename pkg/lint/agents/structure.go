package agents

import (
	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// NewGeneralStructure returns the GENERALSTRUCTURE agent. Most of its rules
// are driven by section targets and patterns in the catalogue.
func NewGeneralStructure() *lint.RuleAgent {
	return lint.NewRuleAgent(GeneralStructure, CategoryStructure).
		Check("CUN-GS-002", keywordsCheck).
		Check("CUN-GS-004", sectionOrder)
}

// keywordsCheck requires keywords after the abstract, except in course
// activities where they are not expected.
func keywordsCheck(in *lint.CheckInput) ([]lint.Violation, error) {
	docType := in.Context.DocumentType
	if docType == "" {
		docType = in.Profile.Type()
	}
	if docType == core.DocTypeCourseActivity {
		return nil, nil
	}
	return lint.PatternCheck(in)
}

// sectionOrder checks the order of whichever target sections are present.
// Missing sections are left to the rules that require them.
func sectionOrder(in *lint.CheckInput) ([]lint.Violation, error) {
	prev := 0
	prevName := ""
	for _, target := range in.Rule.Hints.SectionTargets {
		h, ok := in.Doc.Section(target)
		if !ok {
			continue
		}
		if h.Line < prev {
			return []lint.Violation{lint.Violation{
				Detail:  h.Title + " aparece antes de " + prevName,
				Key:     "order",
				Section: h.Title,
			}.At(h.Start, h.End)}, nil
		}
		prev, prevName = h.Line, h.Title
	}
	return nil, nil
}
