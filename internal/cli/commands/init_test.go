package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/apalint/internal/cli/config"
)

func TestInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"apalint.yaml", "rules/local.rules.yaml", "rules/lib/apa.star", ".gitignore"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "apalint.yaml"), []byte("existing"), 0o600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "apalint.yaml"), []byte("existing"), 0o600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"apalint.yaml", "rules/local.rules.yaml"},
		},
		{
			name:      "init into new subdirectory",
			args:      []string{"tesis"},
			wantFiles: []string{"tesis/apalint.yaml", "tesis/rules/local.rules.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.ResetConfig()
			t.Cleanup(config.ResetConfig)
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			_, err := execute(t, NewInitCommand(), "", tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(tmpDir, filepath.FromSlash(f)))
			}
		})
	}
}

func TestInitCommand_ProjectLoads(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := execute(t, NewInitCommand(), "")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(filepath.Join(dir, "apalint.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rules"), cfg.RulesDir)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)

	rs, err := LoadRules(cfg.RulesDir)
	require.NoError(t, err)
	assert.True(t, rs.Has("LOCAL-GS-900"))
	assert.True(t, rs.Has("LOCAL-GS-901"))

	modules, err := LoadModules(cfg.RulesDir)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "apa", modules[0].Namespace)
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, "a/.gitignore", renameSpecialFiles("a/gitignore"))
	assert.Equal(t, "rules/x.rules.yaml", renameSpecialFiles("rules/x.rules.yaml"))
}
