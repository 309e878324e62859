// Package agents provides the built-in validating agents and the embedded
// apa7_cun rule catalogue they are written against.
package agents

import (
	"embed"
	"io/fs"

	"github.com/leapstack-labs/apalint/pkg/lint"
)

// Agent ids.
const (
	GeneralStructure    = "GENERALSTRUCTURE"
	References          = "REFERENCES"
	InTextCitations     = "INTEXTCITATIONS"
	GlobalFormat        = "GLOBALFORMAT"
	Equations           = "EQUATIONS"
	MetadataConsistency = "METADATACONSISTENCY"
	ScientificDesign    = "SCIENTIFICDESIGN"
	TablesFigures       = "TABLESFIGURES"
)

// Finding categories.
const (
	CategoryStructure        = "structure"
	CategoryReferences       = "references"
	CategoryCitations        = "citations"
	CategoryFormat           = "format"
	CategoryEquations        = "math_equations"
	CategoryMetadata         = "metadata"
	CategoryScientificDesign = "scientific_design"
	CategoryLayout           = "layout"
)

//go:embed rules
var rulesFS embed.FS

// RulesFS returns the embedded rule catalogue.
func RulesFS() fs.FS {
	sub, err := fs.Sub(rulesFS, "rules")
	if err != nil {
		panic(err) // embedded path is fixed
	}
	return sub
}

// DefaultSource is the embedded catalogue as a rule source.
func DefaultSource() lint.RuleSource {
	return lint.FSSource("builtin", RulesFS())
}

// LoadDefault loads the embedded catalogue.
func LoadDefault() (*lint.RuleSet, error) {
	return lint.Load(DefaultSource())
}

// Builtin returns a fresh instance of every built-in agent, in a fixed order.
// The profile detector is not included.
func Builtin() []lint.Agent {
	return []lint.Agent{
		NewGeneralStructure(),
		NewReferences(),
		NewInTextCitations(),
		NewGlobalFormat(),
		NewEquations(),
		NewMetadataConsistency(),
		NewScientificDesign(),
		NewTablesFigures(),
	}
}
