package agents

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/lint"
)

// Layout defaults, overridable per rule through options.
const (
	DefaultMaxInnerHorizontal = 3
	DefaultMinImageWidthCM    = 4.0
	DefaultMinImageHeightCM   = 3.0
	DefaultMaxImageWidthCM    = 17.0
)

// NewTablesFigures returns the TABLESFIGURES agent. It only reports when
// the request carries a layout summary.
func NewTablesFigures() *lint.RuleAgent {
	return lint.NewRuleAgent(TablesFigures, CategoryLayout).
		Check("CUN-TF-001", tableBorders).
		Check("CUN-TF-002", imageSizes)
}

func tableBorders(in *lint.CheckInput) ([]lint.Violation, error) {
	layout := in.Context.Layout
	if layout == nil {
		return nil, nil
	}
	maxInner := in.Options.Int("max_inner_horizontal", DefaultMaxInnerHorizontal)

	var out []lint.Violation
	for _, t := range layout.Tables {
		b := t.Borders
		verticals := b.HasVerticalInner || b.HasVerticalOuter
		tooMany := b.HorizontalInternalCnt > maxInner
		if !verticals && !tooMany {
			continue
		}
		var issues []string
		if verticals {
			issues = append(issues, "tiene líneas verticales")
		}
		if tooMany {
			issues = append(issues, fmt.Sprintf("tiene %d líneas horizontales internas", b.HorizontalInternalCnt))
		}
		label := t.Label
		if label == "" {
			label = fmt.Sprintf("Tabla %d", t.Index+1)
		}
		out = append(out, lint.Violation{
			Detail:  label + ": " + strings.Join(issues, "; "),
			Snippet: label,
			Key:     "table" + strconv.Itoa(t.Index),
		})
	}
	return out, nil
}

func imageSizes(in *lint.CheckInput) ([]lint.Violation, error) {
	layout := in.Context.Layout
	if layout == nil {
		return nil, nil
	}
	minW := in.Options.Float("min_width_cm", DefaultMinImageWidthCM)
	minH := in.Options.Float("min_height_cm", DefaultMinImageHeightCM)
	maxW := in.Options.Float("max_width_cm", DefaultMaxImageWidthCM)

	var out []lint.Violation
	for _, img := range layout.Images {
		small := img.WidthCM < minW || img.HeightCM < minH
		large := img.WidthCM > maxW
		if !small && !large {
			continue
		}
		issues := []string{fmt.Sprintf("%.1f×%.1f cm", img.WidthCM, img.HeightCM)}
		if small {
			issues = append(issues, "demasiado pequeña para ser legible")
		}
		if large {
			issues = append(issues, "puede exceder los márgenes")
		}
		label := img.Label
		if label == "" {
			label = fmt.Sprintf("Figura %d", img.Index+1)
		}
		out = append(out, lint.Violation{
			Detail:  label + ": " + strings.Join(issues, "; "),
			Snippet: label,
			Key:     "img" + strconv.Itoa(img.Index),
		})
	}
	return out, nil
}
