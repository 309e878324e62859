package agents

import (
	"context"
	"testing"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCatalogue(t *testing.T) *lint.RuleSet {
	t.Helper()
	rs, err := LoadDefault()
	require.NoError(t, err)
	return rs
}

// run evaluates agent over text and groups the findings by rule id.
func run(t *testing.T, agent lint.Agent, text string, lctx core.LintContext) map[string][]core.Finding {
	t.Helper()
	lctx, err := lctx.Normalize()
	require.NoError(t, err)
	in := &lint.Input{
		Doc:     document.New(text),
		Context: lctx,
		Profile: core.UnknownProfile(),
		Rules:   loadCatalogue(t),
	}
	out := make(map[string][]core.Finding)
	for _, f := range agent.Evaluate(context.Background(), in) {
		out[f.RuleID] = append(out[f.RuleID], f)
	}
	return out
}

func TestLoadDefault(t *testing.T) {
	rs := loadCatalogue(t)
	assert.Greater(t, rs.Len(), 30)

	known := map[string]*lint.RuleAgent{}
	for _, a := range Builtin() {
		known[a.ID()] = a.(*lint.RuleAgent)
	}
	for _, r := range rs.All() {
		if r.Domain == "DOCUMENTPROFILE" {
			continue
		}
		agent, ok := known[r.Domain]
		require.True(t, ok, "rule %s has unknown domain %s", r.ID, r.Domain)
		assert.Equal(t, "apa7_cun", r.ProfileID, r.ID)
		if r.CheckType == lint.CheckSemantic {
			assert.True(t, agent.HasCheck(r.ID), "semantic rule %s has no check", r.ID)
		}
	}
}

func TestLoadDefault_ResearchRules(t *testing.T) {
	rs := loadCatalogue(t)
	for _, id := range []string{"CUN-SD-001", "CUN-SD-002", "CUN-SD-003", "CUN-SD-004", "CUN-SD-005", "CUN-SD-006", "CUN-SD-007"} {
		r, ok := rs.Get(id)
		require.True(t, ok, id)
		assert.ElementsMatch(t, ResearchTypes, r.AppliesTo, id)
	}

	essay := rs.RulesFor(ScientificDesign, lint.Selector{DocumentType: core.DocTypeEssay, Variant: core.VariantOfficial})
	assert.Empty(t, essay)
	unknown := rs.RulesFor(ScientificDesign, lint.Selector{Variant: core.VariantOfficial})
	assert.Empty(t, unknown)
}

func TestLoadDefault_International(t *testing.T) {
	rs := loadCatalogue(t)
	for _, a := range Builtin() {
		for _, r := range rs.RulesFor(a.ID(), lint.Selector{DocumentType: core.DocTypeThesis, Variant: core.VariantInternational}) {
			assert.NotEqual(t, lint.SourceLocal, r.Source, r.ID)
		}
	}
	_, ok := rs.Get("CUN-REF-006")
	assert.True(t, ok)
}

func TestGeneralStructure(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		docType string
		want    map[string]int
	}{
		{
			name:    "keywords missing",
			text:    "RESUMEN\nTexto del resumen sin descriptores.\n\nINTRODUCCION\nDesarrollo del tema.\n",
			docType: core.DocTypeThesis,
			want:    map[string]int{"CUN-GS-002": 1},
		},
		{
			name:    "keywords present",
			text:    "RESUMEN\nTexto del resumen.\nPalabras clave: escritura, normas\n\nINTRODUCCION\nDesarrollo del tema.\n",
			docType: core.DocTypeThesis,
			want:    map[string]int{},
		},
		{
			name:    "course activity skips keywords",
			text:    "RESUMEN\nTexto del resumen.\n\nINTRODUCCION\nDesarrollo del tema.\n",
			docType: core.DocTypeCourseActivity,
			want:    map[string]int{},
		},
		{
			name:    "abstract and introduction missing",
			text:    "Un texto corto sin encabezados.\n",
			docType: core.DocTypeThesis,
			want:    map[string]int{"CUN-GS-001": 1, "CUN-GS-003": 1},
		},
		{
			name:    "sections out of order",
			text:    "RESUMEN\nTexto.\nPalabras clave: a, b\n\nCONCLUSIONES\nCierre del trabajo.\n\nINTRODUCCION\nInicio del trabajo.\n",
			docType: core.DocTypeThesis,
			want:    map[string]int{"CUN-GS-004": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, NewGeneralStructure(), tt.text, core.LintContext{DocumentType: tt.docType})
			counts := make(map[string]int)
			for id, fs := range got {
				if id == "CUN-GS-005" {
					continue // script rule, no runner attached
				}
				counts[id] = len(fs)
			}
			assert.Equal(t, tt.want, counts)
		})
	}
}

const referencesDoc = `Introducción
Según Gómez (2019) el formato importa (Pérez, 2020) y también (Ruiz 2018).

REFERENCIAS
Pérez, J. (2020). Primer título. Editorial Uno.
Gómez, A. (2019). Segundo título. Editorial Dos.
Zapata, L. Obra sin fecha. Editorial Tres.
`

func TestReferences(t *testing.T) {
	got := run(t, NewReferences(), referencesDoc, core.LintContext{})

	require.Len(t, got["CUN-REF-001"], 1)
	order := got["CUN-REF-001"][0]
	assert.Equal(t, "REFERENCES:CUN-REF-001:order", order.ID)
	assert.Contains(t, order.Details, "Gómez")
	require.NotNil(t, order.Position)
	assert.Equal(t, 6, order.Position.Line)

	require.Len(t, got["CUN-REF-003"], 1)
	assert.Contains(t, got["CUN-REF-003"][0].Snippet, "Zapata")

	assert.Empty(t, got["CUN-REF-002"])
	assert.Empty(t, got["CUN-REF-006"])
}

func TestReferences_Header(t *testing.T) {
	text := "Introducción\nTexto (Pérez, 2020).\n\nBIBLIOGRAFÍA\nPérez, J. (2020). Título. Editorial.\n"
	got := run(t, NewReferences(), text, core.LintContext{})
	require.Len(t, got["CUN-REF-006"], 1)
	assert.Equal(t, "REFERENCES:CUN-REF-006:header", got["CUN-REF-006"][0].ID)

	intl := run(t, NewReferences(), text, core.LintContext{Variant: core.VariantInternational})
	assert.Empty(t, intl["CUN-REF-006"])
}

func TestReferences_MissingSection(t *testing.T) {
	got := run(t, NewReferences(), "Texto sin lista de fuentes.\n", core.LintContext{})
	require.Len(t, got["CUN-REF-002"], 1)
	assert.Equal(t, core.SeverityError, got["CUN-REF-002"][0].Severity)
	assert.Equal(t, "references", got["CUN-REF-002"][0].Category)
}

func TestReferences_ForbiddenDOI(t *testing.T) {
	text := "REFERENCIAS\nPérez, J. (2020). Título. Revista, 1(2), 3-4. doi: 10.1000/xyz\n"
	got := run(t, NewReferences(), text, core.LintContext{})
	require.Len(t, got["CUN-REF-004"], 1)
	assert.Equal(t, core.SeverityInfo, got["CUN-REF-004"][0].Severity)
	assert.Equal(t, "doi: 10.", got["CUN-REF-004"][0].Details)
}

func TestInTextCitations(t *testing.T) {
	got := run(t, NewInTextCitations(), referencesDoc, core.LintContext{})

	require.Len(t, got["CUN-IC-002"], 1)
	assert.Equal(t, "(Ruiz 2018)", got["CUN-IC-002"][0].Snippet)
	assert.Empty(t, got["CUN-IC-001"])
	assert.Empty(t, got["CUN-IC-005"])
	assert.Empty(t, got["CUN-IC-006"])
}

func TestInTextCitations_Matching(t *testing.T) {
	text := `Introducción
Como señala (López, 2021) el problema persiste.

REFERENCIAS
Pérez, J. (2020). Título. Editorial.
`
	got := run(t, NewInTextCitations(), text, core.LintContext{})

	require.Len(t, got["CUN-IC-005"], 1)
	missing := got["CUN-IC-005"][0]
	assert.Equal(t, "INTEXTCITATIONS:CUN-IC-005:LOPEZ:2021", missing.ID)
	assert.Equal(t, core.SeverityError, missing.Severity)
	assert.Contains(t, missing.Details, "Lopez (2021)")

	require.Len(t, got["CUN-IC-006"], 1)
	assert.Equal(t, "INTEXTCITATIONS:CUN-IC-006:PEREZ:2020", got["CUN-IC-006"][0].ID)
}

func TestInTextCitations_NoneAtAll(t *testing.T) {
	text := "Introducción\nTexto sin citas.\n\nREFERENCIAS\nPérez, J. (2020). Título. Editorial.\n"
	got := run(t, NewInTextCitations(), text, core.LintContext{})
	require.Len(t, got["CUN-IC-001"], 1)
	assert.Equal(t, "INTEXTCITATIONS:CUN-IC-001:none", got["CUN-IC-001"][0].ID)
}

func TestGlobalFormat(t *testing.T) {
	tests := []struct {
		name string
		md   *core.Metadata
		want map[string]int
	}{
		{name: "no metadata", md: nil, want: map[string]int{}},
		{
			name: "compliant",
			md: &core.Metadata{
				FontFamily: "times new roman", FontSize: 12, LineSpacing: 2,
				Margins: &core.Margins{TopCM: 2.5, BottomCM: 2.5, LeftCM: 2.5, RightCM: 2.5},
			},
			want: map[string]int{},
		},
		{
			name: "everything off",
			md:   &core.Metadata{FontFamily: "Comic Sans", FontSize: 14, LineSpacing: 1},
			want: map[string]int{"CUN-GF-001": 1, "CUN-GF-002": 1, "CUN-GF-003": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, NewGlobalFormat(), "Texto.", core.LintContext{Metadata: tt.md})
			counts := make(map[string]int)
			for id, fs := range got {
				counts[id] = len(fs)
			}
			assert.Equal(t, tt.want, counts)
			if f, ok := got["CUN-GF-001"]; ok {
				assert.Contains(t, f[0].Details, "Comic Sans")
				assert.Contains(t, f[0].Details, "14")
			}
		})
	}
}

func TestEquations(t *testing.T) {
	text := "Modelo\ny = mx + b (1)\nz = 2x + 1 (3)\nComo muestra la ecuación (2), el ajuste es lineal.\n"
	got := run(t, NewEquations(), text, core.LintContext{})

	require.Len(t, got["CUN-ME-001"], 1)
	assert.Equal(t, "EQUATIONS:CUN-ME-001:sequence", got["CUN-ME-001"][0].ID)
	assert.Contains(t, got["CUN-ME-001"][0].Details, "1, 3")

	require.Len(t, got["CUN-ME-002"], 1)
	assert.Equal(t, "EQUATIONS:CUN-ME-002:eq2", got["CUN-ME-002"][0].ID)
	assert.Equal(t, 4, got["CUN-ME-002"][0].Position.Line)

	assert.Len(t, got["CUN-ME-003"], 2)
}

func TestEquations_Consistent(t *testing.T) {
	text := "y = mx + b (1)\nz = 2x + 1 (2)\nLa ecuación (1) y la ecuación (2) se usan.\n"
	got := run(t, NewEquations(), text, core.LintContext{})
	assert.Empty(t, got)
}

func TestMetadataConsistency(t *testing.T) {
	inferred := core.DocTypeThesis
	lctx, err := core.LintContext{
		DocumentType: core.DocTypeEssay,
		Institution:  "Corporación Unificada Nacional",
		Metadata:     &core.Metadata{Language: "en-US"},
	}.Normalize()
	require.NoError(t, err)

	profile := core.UnknownProfile()
	profile.InferredType = &inferred
	profile.Language = "es"

	in := &lint.Input{
		Doc:     document.New("Ensayo sobre escritura académica."),
		Context: lctx,
		Profile: profile,
		Rules:   loadCatalogue(t),
	}
	got := make(map[string]core.Finding)
	for _, f := range NewMetadataConsistency().Evaluate(context.Background(), in) {
		got[f.RuleID] = f
	}
	require.Len(t, got, 3)
	assert.Contains(t, got["CUN-MD-001"].Details, "tesis")
	assert.Contains(t, got["CUN-MD-002"].Details, "Corporación")
	assert.Contains(t, got["CUN-MD-003"].Details, "en-US")

	in.Context.Variant = core.VariantInternational
	intl := NewMetadataConsistency().Evaluate(context.Background(), in)
	for _, f := range intl {
		assert.NotEqual(t, "CUN-MD-002", f.RuleID)
	}
}

func TestScientificDesign(t *testing.T) {
	text := "INTRODUCCION\nPlanteamiento general del trabajo.\n\nCONCLUSIONES\nCierre del trabajo.\n"

	thesis := run(t, NewScientificDesign(), text, core.LintContext{DocumentType: core.DocTypeThesis})
	require.Len(t, thesis["CUN-SD-002"], 1)
	assert.Contains(t, thesis["CUN-SD-002"][0].Details, "METODO")
	require.Len(t, thesis["CUN-SD-003"], 1)
	assert.Contains(t, thesis["CUN-SD-003"][0].Details, "RESULTADOS, DISCUSION")
	assert.Len(t, thesis["CUN-SD-001"], 1)
	assert.Len(t, thesis["CUN-SD-006"], 1)
	assert.Empty(t, thesis["CUN-SD-004"])
	assert.Empty(t, thesis["CUN-SD-007"], "augmented rule without augmenter")

	essay := run(t, NewScientificDesign(), text, core.LintContext{DocumentType: core.DocTypeEssay})
	assert.Empty(t, essay)
}

func TestScientificDesign_Order(t *testing.T) {
	text := "INTRODUCCION\nTexto.\n\nRESULTADOS\nTexto.\n\nMETODO\nTexto.\n\nDISCUSION\nTexto.\n"
	got := run(t, NewScientificDesign(), text, core.LintContext{DocumentType: core.DocTypeArticle})
	require.Len(t, got["CUN-SD-004"], 1)
	assert.Equal(t, "SCIENTIFICDESIGN:CUN-SD-004:order", got["CUN-SD-004"][0].ID)
}

func TestTablesFigures(t *testing.T) {
	layout := &core.Layout{
		Tables: []core.TableLayout{
			{Index: 0, Borders: core.TableBorders{HasVerticalInner: true}},
			{Index: 1, Label: "Tabla 2", Borders: core.TableBorders{HorizontalInternalCnt: 2}},
		},
		Images: []core.ImageLayout{
			{Index: 0, WidthCM: 2, HeightCM: 2},
			{Index: 1, WidthCM: 12, HeightCM: 8},
		},
	}
	got := run(t, NewTablesFigures(), "Texto.", core.LintContext{Layout: layout})

	require.Len(t, got["CUN-TF-001"], 1)
	assert.Equal(t, "TABLESFIGURES:CUN-TF-001:table0", got["CUN-TF-001"][0].ID)
	assert.Contains(t, got["CUN-TF-001"][0].Details, "Tabla 1")

	require.Len(t, got["CUN-TF-002"], 1)
	assert.Equal(t, "TABLESFIGURES:CUN-TF-002:img0", got["CUN-TF-002"][0].ID)

	none := run(t, NewTablesFigures(), "Texto.", core.LintContext{})
	assert.Empty(t, none)
}
