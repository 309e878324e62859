package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/leapstack-labs/apalint/pkg/lint/agents"
)

func TestRulesCommand_ListJSON(t *testing.T) {
	useProject(t, "output: json\n")

	out, err := execute(t, NewRulesCommand(), "", "--agent", "generalstructure")
	require.NoError(t, err)

	var infos []lint.RuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos), out)
	require.NotEmpty(t, infos)
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		assert.Equal(t, agents.GeneralStructure, info.Domain)
		ids = append(ids, info.ID)
	}
	assert.Contains(t, ids, "LOCAL-GS-900")
}

func TestRulesCommand_ListMarkdown(t *testing.T) {
	useProject(t, "output: markdown\n")

	out, err := execute(t, NewRulesCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "| ID | Agent | Severity | Check | Name |")
	assert.Contains(t, out, "LOCAL-GS-900")
	assert.Contains(t, out, "rules across")
}

func TestRulesCommand_NoMatch(t *testing.T) {
	useProject(t, "output: json\n")

	out, err := execute(t, NewRulesCommand(), "", "--agent", "NOPE")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRulesCommand_Show(t *testing.T) {
	useProject(t, "output: markdown\n")

	out, err := execute(t, NewRulesCommand(), "", "LOCAL-GS-900")
	require.NoError(t, err)
	assert.Contains(t, out, "# LOCAL-GS-900: Marca de borrador")
	assert.Contains(t, out, "- **Agent:** GENERALSTRUCTURE")
	assert.Contains(t, out, "- **Source:** LOCAL")

	_, err = execute(t, NewRulesCommand(), "", "NOPE-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule not found")
}

func TestLoadRules(t *testing.T) {
	builtin, err := agents.LoadDefault()
	require.NoError(t, err)

	rs, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, builtin.Len(), rs.Len())

	rs, err = LoadRules(t.TempDir() + "/missing")
	require.NoError(t, err)
	assert.Equal(t, builtin.Len(), rs.Len())
}
