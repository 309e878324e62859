package profile

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// ID implements lint.Agent.
func (d *Detector) ID() string { return AgentID }

// Evaluate implements lint.Agent. It reports on in.Profile, detecting it
// first when the caller left it unset.
func (d *Detector) Evaluate(ctx context.Context, in *lint.Input) []core.Finding {
	if in.Profile.APAKind == "" {
		cp := *in
		cp.Profile = d.Detect(ctx, in.Doc, in.Context)
		in = &cp
	}
	return d.agent.Evaluate(ctx, in)
}

func languageMismatch(in *lint.CheckInput) ([]lint.Violation, error) {
	declared, detected := in.Context.Language, in.Profile.Language
	if declared == "" || detected == "" || declared == detected {
		return nil, nil
	}
	return []lint.Violation{{
		Detail:  fmt.Sprintf("detectado %s, declarado %s", detected, declared),
		Snippet: in.Doc.Excerpt(300),
	}}, nil
}

func (d *Detector) lowConfidence(in *lint.CheckInput) ([]lint.Violation, error) {
	if in.Context.DocumentType != "" || in.Doc.Empty() {
		return nil, nil
	}
	threshold := in.Options.Float("min_confidence", d.minConfidence)
	if in.Profile.Confidence >= threshold {
		return nil, nil
	}
	return []lint.Violation{{
		Detail: fmt.Sprintf("confianza %.2f", in.Profile.Confidence),
	}}, nil
}
