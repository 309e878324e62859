package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLintContext_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      LintContext
		want    LintContext
		wantErr string
	}{
		{
			name: "defaults",
			in:   LintContext{},
			want: LintContext{Language: "es", Variant: VariantOfficial},
		},
		{
			name: "aliases and filter",
			in:   LintContext{Language: "EN", Variant: "apa7_international", Agents: []string{" references", ""}},
			want: LintContext{Language: "en", Variant: VariantInternational, Agents: []string{"REFERENCES"}},
		},
		{
			name: "document type from metadata",
			in:   LintContext{Metadata: &Metadata{DocumentType: " Ensayo "}},
			want: LintContext{Language: "es", Variant: VariantOfficial, DocumentType: "ensayo", Metadata: &Metadata{DocumentType: " Ensayo "}},
		},
		{
			name:    "unknown variant",
			in:      LintContext{Variant: "regional"},
			wantErr: "profile_variant",
		},
		{
			name:    "unsupported language",
			in:      LintContext{Language: "fr"},
			wantErr: "language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, errors.Is(err, ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLintContext_WantsAgent(t *testing.T) {
	assert.True(t, LintContext{}.WantsAgent("REFERENCES"))

	c := LintContext{Agents: []string{"REFERENCES"}}
	assert.True(t, c.WantsAgent("REFERENCES"))
	assert.False(t, c.WantsAgent("EQUATIONS"))
}

func TestDocumentProfile_Type(t *testing.T) {
	p := UnknownProfile()
	assert.Equal(t, "", p.Type())
	assert.Equal(t, APAKindUnknown, p.APAKind)

	dt := DocTypeEssay
	p.DocumentType = &dt
	assert.Equal(t, "ensayo", p.Type())
}
