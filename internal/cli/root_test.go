package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/apalint/internal/cli/commands"
	"github.com/leapstack-labs/apalint/internal/cli/config"
	"github.com/leapstack-labs/apalint/internal/cli/testutil"
	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"lint", "rules", "profile", "coach", "serve", "init", "doctor", "version", "completion"} {
		assert.Contains(t, names, want)
	}
	for _, flag := range []string{"config", "rules-dir", "verbose", "log-level", "output", "augment", "provider", "model", "cache"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_Lint(t *testing.T) {
	tests := []struct {
		variant   string
		wantLocal bool
	}{
		{variant: "official", wantLocal: true},
		{variant: "international", wantLocal: false},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			dir := testutil.SetupTestProject(t, "")
			cfgPath := filepath.Join(dir, "apalint.yaml")
			doc := filepath.Join(dir, "informe.txt")

			out, err := run(t, "--config", cfgPath, "-o", "json", "lint", "--fail-on", "none", "--variant", tt.variant, doc)
			require.NoError(t, err)

			var res struct {
				Findings []core.Finding `json:"findings"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res), out)
			ids := make([]string, 0, len(res.Findings))
			for _, f := range res.Findings {
				ids = append(ids, f.RuleID)
			}
			if tt.wantLocal {
				assert.Contains(t, ids, "LOCAL-GS-900")
			} else {
				assert.NotContains(t, ids, "LOCAL-GS-900")
			}
			assert.Equal(t, tt.variant, config.GetCurrentConfig().Lint.Variant)
		})
	}
}

func TestRootCommand_LintFails(t *testing.T) {
	dir := testutil.SetupTestProject(t, "output: json\n")

	_, err := run(t, "--config", filepath.Join(dir, "apalint.yaml"),
		"lint", "--fail-on", "warning", filepath.Join(dir, "informe.txt"))
	assert.ErrorIs(t, err, commands.ErrLintFailed)
}

func TestRootCommand_RulesMarkdown(t *testing.T) {
	dir := testutil.SetupTestProject(t, "")

	out, err := run(t, "--config", filepath.Join(dir, "apalint.yaml"), "-o", "markdown", "rules", "LOCAL-GS-900")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "LOCAL-GS-900")
}

func TestRootCommand_DocsBaseURL(t *testing.T) {
	t.Cleanup(lint.ResetDocsBaseURL)
	dir := testutil.SetupTestProject(t, "docs_base_url: https://docs.example.edu/apa/\n")

	out, err := run(t, "--config", filepath.Join(dir, "apalint.yaml"), "-o", "markdown", "rules", "LOCAL-GS-900")
	require.NoError(t, err)
	assert.Contains(t, out, "https://docs.example.edu/apa/local-gs-900")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t, "output: xml\n")

	_, err := run(t, "--config", filepath.Join(dir, "apalint.yaml"), "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCommand_Completion(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "apalint")
}
