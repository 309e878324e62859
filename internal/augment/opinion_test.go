package augment

import (
	"context"
	"testing"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpinion(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantErr  bool
		wantType string
		wantKind core.APAKind
	}{
		{
			name:     "complete",
			raw:      `{"isAcademic":true,"apaKind":"student","documentType":"Informe","level":"pregrado","mode":"grupal","confidence":0.82}`,
			wantType: core.DocTypeReport,
			wantKind: core.APAKindStudent,
		},
		{
			name:     "unknown values dropped",
			raw:      `Claro: {"apaKind":"alien","documentType":"novela","confidence":0.9}`,
			wantKind: core.APAKindUnknown,
		},
		{name: "no confidence", raw: `{"apaKind":"student"}`, wantErr: true},
		{name: "not json", raw: `no sé`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseOpinion(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, p.Type())
			assert.Equal(t, tt.wantKind, p.APAKind)
		})
	}
}

func TestProfileOpinion_WithDetector(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: `{"isAcademic":true,"apaKind":"student","documentType":"ensayo","mode":"individual","confidence":0.9}`}}}
	r := New(Config{Capability: capability})
	d := profile.New(profile.Config{Opinion: ProfileOpinion{Runner: r}})

	p := d.Detect(context.Background(), document.New("Notas sueltas sobre el tema."), core.LintContext{Language: "es"})
	assert.True(t, p.Augmented)
	assert.Equal(t, core.DocTypeEssay, p.Type())
	assert.Equal(t, core.ModeIndividual, p.Mode)
	assert.Equal(t, 1, capability.Calls())

	off := profile.New(profile.Config{Opinion: ProfileOpinion{Runner: New(Config{})}})
	p = off.Detect(context.Background(), document.New("Notas sueltas sobre el tema."), core.LintContext{Language: "es"})
	assert.False(t, p.Augmented)
}
