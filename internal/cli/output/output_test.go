package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTest(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
		{Mode("bogus"), false, ModeMarkdown},
		{Mode(""), true, ModeText},
	}
	for _, tt := range tests {
		r, _, _ := newTest(tt.mode, tt.tty)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %q tty %v", tt.mode, tt.tty)
	}
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" JSON ")
	assert.True(t, ok)
	assert.Equal(t, ModeJSON, m)

	_, ok = ParseMode("xml")
	assert.False(t, ok)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Rules\n", FormatHeader(2, "Rules"))
	assert.Equal(t, "###### Deep\n", FormatHeader(9, "Deep"))
	assert.Equal(t, "- **Total:** 3", FormatKeyValue("Total", "3"))
	assert.Equal(t, "```json\n{}\n```\n", FormatCodeBlock("json", "{}\n"))
	assert.Equal(t, "- a\n- b\n", FormatList([]string{"a", "b"}))
}

func TestMarkdownHasNoANSI(t *testing.T) {
	r, out, errOut := newTest(ModeMarkdown, false)
	r.Header(1, "Resultado")
	r.KeyValue("Errores", "2")
	r.Success("listo")
	r.Warning("cuidado")
	r.Println(r.Styles().Error.Render("error"))

	assert.False(t, ansi.MatchString(out.String()+errOut.String()))
	assert.Contains(t, out.String(), "# Resultado")
	assert.Contains(t, out.String(), "- **Errores:** 2")
	assert.Contains(t, errOut.String(), "! cuidado")
}

func TestTable(t *testing.T) {
	headers := []string{"ID", "Agent"}
	rows := [][]string{{"CUN-GS-001", "GENERALSTRUCTURE"}}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTest(ModeMarkdown, false)
		r.Table(headers, rows)
		assert.Contains(t, out.String(), "| ID | Agent |")
		assert.Contains(t, out.String(), "| CUN-GS-001 | GENERALSTRUCTURE |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTest(ModeText, false)
		r.Table(headers, rows)
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, out.String(), "CUN-GS-001")
	})
}

func TestJSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]any{"a": "<b>"}))

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "<b>", got["a"])
	assert.Contains(t, out.String(), "<b>")
}
