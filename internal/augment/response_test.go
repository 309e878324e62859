package augment

import (
	"testing"
	"unicode/utf8"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestToFinding_Position(t *testing.T) {
	doc := document.New("Título: ñandú\nSegunda línea.")

	tests := []struct {
		name        string
		it          item
		wantStart   int
		wantEnd     int
		wantSnippet string
	}{
		{
			name:        "verbatim snippet",
			it:          item{Message: "m", Snippet: "Segunda línea."},
			wantStart:   17,
			wantEnd:     32,
			wantSnippet: "Segunda línea.",
		},
		{
			name:        "offsets inside runes",
			it:          item{Message: "m", OffsetStart: intPtr(2), OffsetEnd: intPtr(15)},
			wantStart:   1,
			wantEnd:     16,
			wantSnippet: "ítulo: ñandú",
		},
		{
			name:        "offsets out of range",
			it:          item{Message: "m", Snippet: "no está", OffsetStart: intPtr(5), OffsetEnd: intPtr(500)},
			wantStart:   -1,
			wantSnippet: "no está",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := toFinding(augmentedRule(), doc, tt.it)
			assert.True(t, utf8.ValidString(f.Snippet))
			assert.Equal(t, tt.wantSnippet, f.Snippet)
			if tt.wantStart < 0 {
				assert.Nil(t, f.Position)
				return
			}
			require.NotNil(t, f.Position)
			assert.Equal(t, tt.wantStart, f.Position.Start)
			assert.Equal(t, tt.wantEnd, f.Position.End)
		})
	}
}
