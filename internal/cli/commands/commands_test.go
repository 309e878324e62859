package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/apalint/internal/cli/config"
	clitest "github.com/leapstack-labs/apalint/internal/cli/testutil"
)

// useProject writes a project with the draft rule and loads its config.
func useProject(t *testing.T, extra string) string {
	t.Helper()
	dir := clitest.SetupTestProject(t, extra)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig(filepath.Join(dir, "apalint.yaml"), nil)
	require.NoError(t, err)
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewLintCommand(), "lint [file...]", []string{"format", "fail-on", "review", "agents", "sections", "context-file", "variant", "document-type", "timeout"}},
		{NewRulesCommand(), "rules [rule-id]", []string{"agent", "augmented"}},
		{NewProfileCommand(), "profile [file]", []string{"format", "variant", "institution"}},
		{NewCoachCommand(), "coach", []string{"mode", "profile", "paper", "topic", "section", "text-file", "question", "request-file"}},
		{NewServeCommand(), "serve", []string{"addr", "watch"}},
		{NewInitCommand(), "init [directory]", []string{"force"}},
		{NewDoctorCommand(), "doctor", []string{"format"}},
		{NewVersionCommand("1.0.0", "abc", "today"), "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand("1.2.3", "abc123", "2026-01-01"), "")
	require.NoError(t, err)
	assert.Contains(t, out, "apalint v1.2.3")
	assert.Contains(t, out, "abc123")
}
