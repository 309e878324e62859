package extract

import (
	"testing"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{in: "", want: FormatText, ok: true},
		{in: "TXT", want: FormatText, ok: true},
		{in: "md", want: FormatMarkdown, ok: true},
		{in: " html ", want: FormatHTML, ok: true},
		{in: "docx"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFormat(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatHTML, FormatFromPath("tesis/Informe.HTML"))
	assert.Equal(t, FormatMarkdown, FormatFromPath("a.md"))
	assert.Equal(t, FormatText, FormatFromPath("a.txt"))
	assert.Equal(t, FormatText, FormatFromPath("noext"))
}

func TestText(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		format  Format
		want    string
		wantErr bool
	}{
		{
			name:    "utf8 text with bom and crlf",
			content: []byte("\xEF\xBB\xBFRESUMEN\r\nTexto.\r\n"),
			format:  FormatText,
			want:    "RESUMEN\nTexto.\n",
		},
		{
			name:    "latin-1 fallback",
			content: []byte("INTRODUCCI\xd3N\nDise\xf1o."),
			format:  FormatText,
			want:    "INTRODUCCIÓN\nDiseño.",
		},
		{
			name:    "markdown headings",
			content: []byte("# Resumen\nTexto **importante**.\n\n\n\n## 2. Método ##\n**Conclusiones**\nFin.\n"),
			format:  FormatMarkdown,
			want:    "Resumen\nTexto **importante**.\n\n2. Método\nConclusiones\nFin.\n",
		},
		{
			name:    "setext heading",
			content: []byte("Referencias\n===========\nGómez, A. (2019).\n"),
			format:  FormatMarkdown,
			want:    "Referencias\nGómez, A. (2019).\n",
		},
		{
			name:    "unknown format",
			content: []byte("x"),
			format:  Format("docx"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text(tt.content, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestText_HTML(t *testing.T) {
	html := `<html><head><script>alert(1)</script></head><body>
<h1>Resumen</h1>
<p onclick="x()">Este trabajo analiza la <b>deserción</b>.</p>
<h2>Referencias</h2>
<p>Gómez, A. (2019). <i>Permanencia</i>.</p>
</body></html>`

	got, err := Text([]byte(html), FormatHTML)
	require.NoError(t, err)
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "onclick")
	assert.NotContains(t, got, "#")

	doc := document.New(got)
	_, ok := doc.Section("RESUMEN")
	assert.True(t, ok)
	_, ok = doc.Section("REFERENCIAS")
	assert.True(t, ok)
}
