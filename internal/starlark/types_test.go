package starlark

import (
	"testing"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestToValue(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr string
	}{
		{name: "string", input: "hola", wantStr: `"hola"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "float64", input: 0.5, wantStr: "0.5"},
		{name: "bool", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "string slice", input: []string{"Arial", "Calibri"}, wantStr: `["Arial", "Calibri"]`},
		{name: "decoded list", input: []any{"x", 1, true}, wantStr: `["x", 1, True]`},
		{name: "keys sorted", input: map[string]any{"max_words": 250, "label": "resumen"}, wantStr: `{"label": "resumen", "max_words": 250}`},
		{name: "rule options", input: lint.Options{"limit": 3}, wantStr: `{"limit": 3}`},
		{name: "unsupported", input: struct{}{}, wantErr: "unsupported option value"},
		{name: "nested unsupported", input: map[string]any{"fonts": []any{struct{}{}}}, wantErr: "fonts: [0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toValue(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestOptionsValue_Frozen(t *testing.T) {
	v, err := optionsValue(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", v.String())

	v, err = optionsValue(lint.Options{"limit": 3})
	require.NoError(t, err)
	dict, ok := v.(*starlark.Dict)
	require.True(t, ok)
	assert.Error(t, dict.SetKey(starlark.String("limit"), starlark.MakeInt(4)))
}

func TestProfileValue(t *testing.T) {
	docType := "tesis"
	v := profileValue(core.DocumentProfile{
		DocumentType: &docType,
		APAKind:      core.APAKindStudent,
		Language:     "es",
		Confidence:   0.75,
		Tags:         []string{"augmented_profile"},
	})

	s, ok := v.(starlark.HasAttrs)
	require.True(t, ok)

	got, err := s.Attr("document_type")
	require.NoError(t, err)
	assert.Equal(t, starlark.String("tesis"), got)

	level, err := s.Attr("level")
	require.NoError(t, err)
	assert.Equal(t, starlark.None, level)

	conf, err := s.Attr("confidence")
	require.NoError(t, err)
	assert.Equal(t, starlark.Float(0.75), conf)
}
