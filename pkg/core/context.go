package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Variant
// =============================================================================

// Variant selects which rule sources apply to a lint operation.
type Variant string

// Recognized variants.
const (
	// VariantOfficial applies standard and local (institutional) rules.
	VariantOfficial Variant = "official"
	// VariantInternational applies standard rules only.
	VariantInternational Variant = "international"
)

// ParseVariant normalizes a variant name. Empty resolves to official.
func ParseVariant(s string) (Variant, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "official", "institutional", "apa7_cun":
		return VariantOfficial, true
	case "international", "apa7_international", "apa7_global":
		return VariantInternational, true
	default:
		return "", false
	}
}

// =============================================================================
// LintContext
// =============================================================================

// Supported document languages.
const (
	LanguageSpanish = "es"
	LanguageEnglish = "en"
)

// LintContext is the per-request input accompanying a document.
// It is treated as immutable for the duration of one lint operation.
type LintContext struct {
	Language     string    `json:"language,omitempty" yaml:"language"`
	Variant      Variant   `json:"profile_variant,omitempty" yaml:"profile_variant"`
	DocumentType string    `json:"document_type,omitempty" yaml:"document_type"`
	Institution  string    `json:"institution,omitempty" yaml:"institution"`
	Metadata     *Metadata `json:"metadata,omitempty" yaml:"metadata"`
	Layout       *Layout   `json:"layout,omitempty" yaml:"layout"`
	Agents       []string  `json:"agents,omitempty" yaml:"agents"`
	Sections     []string  `json:"sections,omitempty" yaml:"sections"`
}

// Metadata holds formatting properties reported by the client.
type Metadata struct {
	FontFamily   string   `json:"font_family,omitempty" yaml:"font_family"`
	FontSize     float64  `json:"font_size,omitempty" yaml:"font_size"`
	LineSpacing  float64  `json:"line_spacing,omitempty" yaml:"line_spacing"`
	Margins      *Margins `json:"page_margins,omitempty" yaml:"page_margins"`
	Language     string   `json:"language,omitempty" yaml:"language"`
	DocumentType string   `json:"document_type,omitempty" yaml:"document_type"`
	Institution  string   `json:"institution,omitempty" yaml:"institution"`
}

// Margins are page margins in centimetres.
type Margins struct {
	TopCM    float64 `json:"top_cm" yaml:"top_cm"`
	BottomCM float64 `json:"bottom_cm" yaml:"bottom_cm"`
	LeftCM   float64 `json:"left_cm" yaml:"left_cm"`
	RightCM  float64 `json:"right_cm" yaml:"right_cm"`
}

// Layout summarizes tables and images detected by the client.
type Layout struct {
	Tables []TableLayout `json:"tables,omitempty" yaml:"tables"`
	Images []ImageLayout `json:"images,omitempty" yaml:"images"`
}

// TableLayout describes one table.
type TableLayout struct {
	Index   int          `json:"index" yaml:"index"`
	Label   string       `json:"label,omitempty" yaml:"label"`
	Title   string       `json:"title,omitempty" yaml:"title"`
	Borders TableBorders `json:"borders" yaml:"borders"`
}

// TableBorders summarizes a table's ruling lines.
type TableBorders struct {
	HasTop                bool `json:"has_top_border" yaml:"has_top_border"`
	HasHeaderBottom       bool `json:"has_header_bottom_border" yaml:"has_header_bottom_border"`
	HasBottom             bool `json:"has_bottom_border" yaml:"has_bottom_border"`
	HasVerticalInner      bool `json:"has_vertical_inner_borders" yaml:"has_vertical_inner_borders"`
	HasVerticalOuter      bool `json:"has_vertical_outer_borders" yaml:"has_vertical_outer_borders"`
	HorizontalInternalCnt int  `json:"horizontal_internal_lines_count" yaml:"horizontal_internal_lines_count"`
}

// ImageLayout describes one figure.
type ImageLayout struct {
	Index    int     `json:"index" yaml:"index"`
	Label    string  `json:"label,omitempty" yaml:"label"`
	Caption  string  `json:"caption,omitempty" yaml:"caption"`
	WidthCM  float64 `json:"width_cm" yaml:"width_cm"`
	HeightCM float64 `json:"height_cm" yaml:"height_cm"`
}

// Normalize returns a copy with defaults applied and names canonicalized.
// It fails with a RequestError on values it does not recognize.
func (c LintContext) Normalize() (LintContext, error) {
	v, ok := ParseVariant(string(c.Variant))
	if !ok {
		return c, NewRequestError("profile_variant", fmt.Sprintf("unknown variant %q", c.Variant))
	}
	c.Variant = v

	switch lang := strings.ToLower(strings.TrimSpace(c.Language)); lang {
	case "":
		c.Language = LanguageSpanish
	case LanguageSpanish, LanguageEnglish:
		c.Language = lang
	default:
		return c, NewRequestError("language", fmt.Sprintf("unsupported language %q", c.Language))
	}

	c.DocumentType = strings.ToLower(strings.TrimSpace(c.DocumentType))
	if c.DocumentType == "" && c.Metadata != nil {
		c.DocumentType = strings.ToLower(strings.TrimSpace(c.Metadata.DocumentType))
	}

	if len(c.Agents) > 0 {
		agents := make([]string, 0, len(c.Agents))
		for _, a := range c.Agents {
			if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
				agents = append(agents, a)
			}
		}
		c.Agents = agents
	}
	return c, nil
}

// WantsAgent reports whether the agent filter admits id.
// An empty filter admits every agent.
func (c LintContext) WantsAgent(id string) bool {
	if len(c.Agents) == 0 {
		return true
	}
	for _, a := range c.Agents {
		if a == id {
			return true
		}
	}
	return false
}
