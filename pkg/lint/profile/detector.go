// Package profile infers the kind of academic document being linted before
// the validating agents run.
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// AgentID is the domain of profile findings.
const AgentID = "DOCUMENTPROFILE"

// Category of profile findings.
const Category = "document_profile"

// Profile rules evaluated by the detector.
const (
	RuleLanguageMismatch = "CUN-DP-001"
	RuleLowConfidence    = "CUN-DP-002"
)

// DefaultMinConfidence is the confidence below which no type is asserted.
const DefaultMinConfidence = 0.5

// Suggested rule profiles.
const (
	ProfileOfficial      = "apa7_cun"
	ProfileInternational = "apa7_international"
)

// Opinion classifies a document through an external capability.
// ok is false when no usable answer was obtained.
type Opinion interface {
	Classify(ctx context.Context, doc *document.Document, lctx core.LintContext) (p core.DocumentProfile, ok bool)
}

// Config configures a Detector.
type Config struct {
	// MinConfidence defaults to DefaultMinConfidence when zero.
	MinConfidence float64
	// Opinion is consulted when the heuristic confidence is too low. May be nil.
	Opinion Opinion
	Logger  *slog.Logger
}

// Detector infers a DocumentProfile from text signals. It also implements
// lint.Agent, reporting DOCUMENTPROFILE findings about the profile.
type Detector struct {
	minConfidence float64
	opinion       Opinion
	logger        *slog.Logger
	agent         *lint.RuleAgent
}

// New creates a Detector.
func New(cfg Config) *Detector {
	d := &Detector{
		minConfidence: cfg.MinConfidence,
		opinion:       cfg.Opinion,
		logger:        cfg.Logger,
	}
	if d.minConfidence <= 0 {
		d.minConfidence = DefaultMinConfidence
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	d.agent = lint.NewRuleAgent(AgentID, Category).
		Check(RuleLanguageMismatch, languageMismatch).
		Check(RuleLowConfidence, d.lowConfidence)
	return d
}

// MinConfidence returns the configured threshold.
func (d *Detector) MinConfidence() float64 { return d.minConfidence }

// Detect infers the profile of doc. It never fails; an empty document
// yields the unknown profile. Below the confidence threshold only a declared
// document type is kept.
func (d *Detector) Detect(ctx context.Context, doc *document.Document, lctx core.LintContext) core.DocumentProfile {
	if doc == nil || doc.Empty() {
		p := core.UnknownProfile()
		p.Language = lctx.Language
		return p
	}
	s := collect(doc)
	p := d.heuristic(s, lctx)

	if p.Confidence < d.minConfidence && d.opinion != nil {
		if op, ok := d.opinion.Classify(ctx, doc, lctx); ok && op.Confidence >= d.minConfidence {
			d.logger.Debug("profile opinion adopted", "confidence", op.Confidence, "type", op.Type())
			p = merge(p, op, lctx)
		}
	}
	return p
}

func (d *Detector) heuristic(s signals, lctx core.LintContext) core.DocumentProfile {
	p := core.DocumentProfile{
		Language:           detectLanguage(s, lctx.Language),
		Mode:               core.ModeUnknown,
		SuggestedProfileID: suggestedProfile(lctx),
	}

	var score float64
	add := func(ok bool, w float64, reason, tag string) {
		if !ok {
			return
		}
		score += w
		if reason != "" {
			p.Reasons = append(p.Reasons, reason)
		}
		if tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	}
	add(s.abstract, 0.15, "contiene resumen", "has_abstract")
	add(s.keywords, 0.10, "contiene palabras clave", "has_keywords")
	add(s.references, 0.15, "contiene lista de referencias", "has_references")
	add(s.citationDensity() >= 1, 0.10, fmt.Sprintf("%.1f citas por cada 1000 palabras", s.citationDensity()), "cites_sources")
	add(s.method, 0.05, "contiene método", "has_method_section")
	add(s.results, 0.05, "contiene resultados", "has_results_section")
	add(s.discussion, 0.05, "contiene discusión", "has_discussion_section")
	add(s.conclusions, 0, "", "has_conclusions_section")
	add(s.firstPerson > 0, 0, "", "first_person")
	add(s.courseHits > 0, 0, "", "course_context")
	add(s.thesisHits > 0, 0, "", "thesis_context")

	inferred, strong := inferType(s)
	if inferred != "" {
		p.InferredType = &inferred
		score += 0.2
		p.Reasons = append(p.Reasons, "tipo probable: "+inferred)
		if strong {
			score += 0.1
		}
	}
	if diff := s.spanish - s.english; diff >= 3 || diff <= -3 {
		score += 0.05
	}

	if lctx.DocumentType != "" {
		declared := lctx.DocumentType
		p.DocumentType = &declared
		score += 0.3
		p.Reasons = append(p.Reasons, "tipo declarado: "+declared)
	}
	p.Confidence = clamp(score)

	p.IsAcademic = s.abstract || s.references || s.citations > 0 || s.imryd() >= 2
	p.Mode = detectMode(s)

	if p.Confidence < d.minConfidence {
		p.APAKind = core.APAKindUnknown
		p.Level = nil
		if lctx.DocumentType == "" {
			p.DocumentType = nil
		}
		return p
	}
	if p.DocumentType == nil && inferred != "" {
		p.DocumentType = &inferred
	}
	p.APAKind = apaKind(s, p.IsAcademic)
	p.Level = detectLevel(s)
	return p
}

// inferType guesses the document type from the text alone. strong reports
// an explicit type marker rather than structure alone.
func inferType(s signals) (string, bool) {
	switch {
	case s.thesisHits > 0 && (s.imryd() >= 2 || s.references):
		return core.DocTypeThesis, true
	case s.imryd() >= 3 && s.abstract && s.keywords:
		return core.DocTypeArticle, false
	case s.imryd() >= 2 && s.reportHits > 0:
		return core.DocTypeResearchReport, true
	case s.imryd() >= 3:
		return core.DocTypeResearchReport, false
	case s.courseHits >= 2 && s.imryd() == 0:
		return core.DocTypeCourseActivity, true
	case s.reportHits > 0:
		return core.DocTypeReport, true
	case s.references && s.imryd() == 0:
		return core.DocTypeEssay, false
	}
	return "", false
}

func detectLanguage(s signals, declared string) string {
	switch {
	case s.spanish > s.english:
		return core.LanguageSpanish
	case s.english > s.spanish:
		return core.LanguageEnglish
	case declared != "":
		return declared
	default:
		return core.LanguageSpanish
	}
}

func detectMode(s signals) core.AuthorshipMode {
	switch {
	case s.group:
		return core.ModeGroup
	case s.single:
		return core.ModeIndividual
	default:
		return core.ModeUnknown
	}
}

func detectLevel(s signals) *string {
	var level string
	switch {
	case s.graduateHits > 0:
		level = core.LevelGraduate
	case s.undergrad > 0 || s.courseHits > 0:
		level = core.LevelUndergraduate
	default:
		return nil
	}
	return &level
}

func apaKind(s signals, academic bool) core.APAKind {
	switch {
	case !academic:
		return core.APAKindUnknown
	case s.keywords && s.imryd() >= 3 && s.courseHits == 0 && s.thesisHits == 0:
		return core.APAKindProfessional
	default:
		return core.APAKindStudent
	}
}

func suggestedProfile(lctx core.LintContext) string {
	if lctx.Variant == core.VariantInternational {
		return ProfileInternational
	}
	return ProfileOfficial
}

// merge adopts an external opinion over the heuristic profile. A declared
// document type still wins.
func merge(h, op core.DocumentProfile, lctx core.LintContext) core.DocumentProfile {
	op.Augmented = true
	op.Confidence = clamp(op.Confidence)
	if op.Language == "" {
		op.Language = h.Language
	}
	if op.Mode == "" {
		op.Mode = h.Mode
	}
	if op.APAKind == "" {
		op.APAKind = core.APAKindUnknown
	}
	if op.InferredType == nil {
		op.InferredType = op.DocumentType
	}
	if lctx.DocumentType != "" {
		declared := lctx.DocumentType
		op.DocumentType = &declared
	}
	if op.SuggestedProfileID == "" {
		op.SuggestedProfileID = h.SuggestedProfileID
	}
	op.Tags = append(append([]string(nil), h.Tags...), "augmented_profile")
	op.Reasons = append(append([]string(nil), h.Reasons...), op.Reasons...)
	return op
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
