package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/apalint/internal/cli/config"
	clitest "github.com/leapstack-labs/apalint/internal/cli/testutil"
	"github.com/leapstack-labs/apalint/internal/testutil"
	"github.com/leapstack-labs/apalint/pkg/core"
)

func findingRules(t *testing.T, out string) []string {
	t.Helper()
	var res struct {
		Findings []core.Finding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	ids := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		ids = append(ids, f.RuleID)
	}
	return ids
}

func TestLintCommand_File(t *testing.T) {
	dir := useProject(t, "output: json\n")
	doc := testutil.WriteFile(t, dir, "informe.txt", clitest.DraftDocument)

	out, err := execute(t, NewLintCommand(), "", "--fail-on", "none", doc)
	require.NoError(t, err)
	assert.Contains(t, findingRules(t, out), "LOCAL-GS-900")
	assert.Contains(t, out, `"run_id"`)
}

func TestLintCommand_Stdin(t *testing.T) {
	useProject(t, "output: json\n")

	out, err := execute(t, NewLintCommand(), clitest.DraftDocument, "--fail-on", "none", "--review")
	require.NoError(t, err)
	assert.Contains(t, findingRules(t, out), "LOCAL-GS-900")
	assert.Contains(t, out, `"review"`)
}

func TestLintCommand_FailOn(t *testing.T) {
	dir := useProject(t, "output: json\n")
	doc := testutil.WriteFile(t, dir, "informe.txt", clitest.DraftDocument)

	_, err := execute(t, NewLintCommand(), "", "--fail-on", "warning", doc)
	assert.ErrorIs(t, err, ErrLintFailed)

	_, err = execute(t, NewLintCommand(), "", "--fail-on", "fatal", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--fail-on")
}

func TestLintCommand_MultipleFiles(t *testing.T) {
	dir := useProject(t, "output: json\n")
	a := testutil.WriteFile(t, dir, "a.txt", clitest.DraftDocument)
	b := testutil.WriteFile(t, dir, "b.md", "# Título\n\nSin marcas.\n")

	out, err := execute(t, NewLintCommand(), "", "--fail-on", "none", a, b)
	require.NoError(t, err)

	var results []struct {
		Path   string          `json:"path"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results), out)
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].Path)
	assert.Equal(t, b, results[1].Path)
	assert.Contains(t, findingRules(t, string(results[0].Result)), "LOCAL-GS-900")
	assert.NotContains(t, findingRules(t, string(results[1].Result)), "LOCAL-GS-900")
}

func TestLintCommand_Markdown(t *testing.T) {
	dir := useProject(t, "output: markdown\n")
	doc := testutil.WriteFile(t, dir, "informe.txt", clitest.DraftDocument)

	out, err := execute(t, NewLintCommand(), "", "--fail-on", "none", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "## "+doc)
	assert.Contains(t, out, "| LOCAL-GS-900 |")
	assert.Contains(t, out, "Summary:")
}

func TestLintCommand_Errors(t *testing.T) {
	dir := useProject(t, "output: json\n")
	doc := testutil.WriteFile(t, dir, "informe.txt", clitest.DraftDocument)

	tests := []struct {
		name   string
		args   []string
		errSub string
	}{
		{"missing file", []string{filepath.Join(dir, "nope.txt")}, "failed to read"},
		{"unknown format", []string{"--format", "docx", doc}, "unknown input format"},
		{"unknown agent", []string{"--agents", "NOPE", doc}, "NOPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewLintCommand(), "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestBuildLintContext(t *testing.T) {
	dir := t.TempDir()
	ctxFile := testutil.WriteFile(t, dir, "ctx.yaml", `profile_variant: international
institution: CUN
metadata:
  font_family: Arial
  font_size: 12
`)
	cfg := &config.Config{Lint: config.LintConfig{Variant: "official", Language: "es", DocumentType: "ensayo"}}

	lctx, err := buildLintContext(cfg, &LintOptions{
		ContextFile: ctxFile,
		Agents:      []string{"REFERENCES"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.VariantInternational, lctx.Variant)
	assert.Equal(t, "CUN", lctx.Institution)
	assert.Equal(t, "ensayo", lctx.DocumentType)
	assert.Equal(t, "es", lctx.Language)
	require.NotNil(t, lctx.Metadata)
	assert.Equal(t, "Arial", lctx.Metadata.FontFamily)
	assert.Equal(t, []string{"REFERENCES"}, lctx.Agents)

	_, err = buildLintContext(cfg, &LintOptions{ContextFile: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Severity
		enabled bool
		wantErr bool
	}{
		{"error", core.SeverityError, true, false},
		{"WARNING", core.SeverityWarning, true, false},
		{"info", core.SeverityInfo, true, false},
		{"none", core.SeverityInfo, false, false},
		{"fatal", core.SeverityWarning, false, true},
	}
	for _, tt := range tests {
		got, enabled, err := parseFailOn(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.enabled, enabled, tt.in)
	}
}
