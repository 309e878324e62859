package agents

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/lint"
)

// NewMetadataConsistency returns the METADATACONSISTENCY agent.
func NewMetadataConsistency() *lint.RuleAgent {
	return lint.NewRuleAgent(MetadataConsistency, CategoryMetadata).
		Check("CUN-MD-001", documentTypeConsistent).
		Check("CUN-MD-002", institutionNamed).
		Check("CUN-MD-003", languageConsistent)
}

// documentTypeConsistent compares the declared type with the one inferred
// from the text.
func documentTypeConsistent(in *lint.CheckInput) ([]lint.Violation, error) {
	declared := in.Context.DocumentType
	if declared == "" || in.Profile.InferredType == nil {
		return nil, nil
	}
	inferred := *in.Profile.InferredType
	if inferred == declared {
		return nil, nil
	}
	return []lint.Violation{{
		Detail: fmt.Sprintf("declarado %q, detectado %q", declared, inferred),
	}}, nil
}

func institutionNamed(in *lint.CheckInput) ([]lint.Violation, error) {
	inst := strings.TrimSpace(in.Context.Institution)
	if inst == "" {
		return nil, nil
	}
	if strings.Contains(strings.ToLower(in.Doc.Text()), strings.ToLower(inst)) {
		return nil, nil
	}
	return []lint.Violation{{
		Detail: fmt.Sprintf("no se encontró %q en el texto", inst),
	}}, nil
}

// languageConsistent compares the language recorded in the file metadata
// with the one detected in the text.
func languageConsistent(in *lint.CheckInput) ([]lint.Violation, error) {
	md := in.Context.Metadata
	if md == nil || md.Language == "" || in.Profile.Language == "" {
		return nil, nil
	}
	declared := strings.ToLower(md.Language)
	if i := strings.IndexAny(declared, "-_"); i > 0 {
		declared = declared[:i]
	}
	if declared == in.Profile.Language {
		return nil, nil
	}
	return []lint.Violation{{
		Detail: fmt.Sprintf("metadatos %q, texto %q", md.Language, in.Profile.Language),
	}}, nil
}
