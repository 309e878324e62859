package agents

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// DefaultFonts are the accepted font families.
var DefaultFonts = []string{"Times New Roman", "Arial"}

// Formatting defaults, overridable per rule through options.
const (
	DefaultMinFontSize    = 11.0
	DefaultMaxFontSize    = 12.0
	DefaultMinLineSpacing = 1.8
	DefaultMaxLineSpacing = 2.2
	DefaultMinMarginCM    = 2.3
	DefaultMaxMarginCM    = 2.7
)

// NewGlobalFormat returns the GLOBALFORMAT agent. It only reports when the
// request carries formatting metadata.
func NewGlobalFormat() *lint.RuleAgent {
	return lint.NewRuleAgent(GlobalFormat, CategoryFormat).
		Check("CUN-GF-001", withMetadata(checkFont)).
		Check("CUN-GF-002", withMetadata(checkLineSpacing)).
		Check("CUN-GF-003", withMetadata(checkMargins))
}

type metadataCheck func(md *core.Metadata, opts lint.Options) []string

func withMetadata(check metadataCheck) lint.CheckFunc {
	return func(in *lint.CheckInput) ([]lint.Violation, error) {
		md := in.Context.Metadata
		if md == nil {
			return nil, nil
		}
		issues := check(md, in.Options)
		if len(issues) == 0 {
			return nil, nil
		}
		return []lint.Violation{{Detail: strings.Join(issues, "; ")}}, nil
	}
}

func checkFont(md *core.Metadata, opts lint.Options) []string {
	var issues []string
	allowed := opts.Strings("allowed_fonts", DefaultFonts)
	switch {
	case md.FontFamily == "":
		issues = append(issues, "fuente no especificada")
	case !containsFold(allowed, md.FontFamily):
		issues = append(issues, fmt.Sprintf("fuente %q (se espera %s)", md.FontFamily, strings.Join(allowed, " o ")))
	}

	lo, hi := opts.Range("min_font_size", "max_font_size", DefaultMinFontSize, DefaultMaxFontSize)
	switch {
	case md.FontSize == 0:
		issues = append(issues, "tamaño de fuente no especificado")
	case md.FontSize < lo || md.FontSize > hi:
		issues = append(issues, fmt.Sprintf("tamaño de fuente %g (se espera entre %g y %g)", md.FontSize, lo, hi))
	}
	return issues
}

func checkLineSpacing(md *core.Metadata, opts lint.Options) []string {
	lo, hi := opts.Range("min_line_spacing", "max_line_spacing", DefaultMinLineSpacing, DefaultMaxLineSpacing)
	switch {
	case md.LineSpacing == 0:
		return []string{"interlineado no especificado"}
	case md.LineSpacing < lo || md.LineSpacing > hi:
		return []string{fmt.Sprintf("interlineado %g (se espera entre %g y %g)", md.LineSpacing, lo, hi)}
	}
	return nil
}

func checkMargins(md *core.Metadata, opts lint.Options) []string {
	if md.Margins == nil {
		return []string{"márgenes no especificados"}
	}
	lo, hi := opts.Range("min_margin_cm", "max_margin_cm", DefaultMinMarginCM, DefaultMaxMarginCM)

	var issues []string
	for _, m := range []struct {
		name  string
		value float64
	}{
		{"superior", md.Margins.TopCM},
		{"inferior", md.Margins.BottomCM},
		{"izquierdo", md.Margins.LeftCM},
		{"derecho", md.Margins.RightCM},
	} {
		switch {
		case m.value == 0:
			issues = append(issues, fmt.Sprintf("margen %s no especificado", m.name))
		case m.value < lo || m.value > hi:
			issues = append(issues, fmt.Sprintf("margen %s %gcm (se espera entre %g y %g)", m.name, m.value, lo, hi))
		}
	}
	return issues
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
