package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/apalint/internal/testutil"
	"github.com/leapstack-labs/apalint/pkg/core"
)

const fileConfig = `rules_dir: from_file
output: json
lint:
  variant: international
  timeout: 5s
  disabled: [CUN-GS-001]
  severity:
    CUN-REF-002: info
  rules:
    CUN-GS-005:
      max_words: 300
augment:
  enabled: true
  model: gpt-4o
  cache_ttl: 30m
  cache_entries: 500
cache:
  backend: sqlite
  path: cache/augment.db
server:
  api_keys: [k1, k2]
`

func writeConfig(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	return dir, testutil.WriteFile(t, dir, "apalint.yaml", content)
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, "official", cfg.Lint.Variant)
	assert.Equal(t, "es", cfg.Lint.Language)
	assert.Equal(t, 60*time.Second, cfg.Lint.Timeout)
	assert.Equal(t, 0.5, cfg.Profile.MinConfidence)
	assert.False(t, cfg.Augment.Enabled)
	assert.Equal(t, "openai", cfg.Augment.Provider)
	assert.Equal(t, time.Hour, cfg.Augment.CacheTTL)
	assert.Equal(t, 4096, cfg.Augment.CacheEntries)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.RulesDir)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir, path := writeConfig(t, fileConfig)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "from_file"), cfg.RulesDir)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "international", cfg.Lint.Variant)
	assert.Equal(t, 5*time.Second, cfg.Lint.Timeout)
	assert.Equal(t, []string{"CUN-GS-001"}, cfg.Lint.Disabled)
	assert.True(t, cfg.Augment.Enabled)
	assert.Equal(t, "gpt-4o", cfg.Augment.Model)
	assert.Equal(t, 30*time.Minute, cfg.Augment.CacheTTL)
	assert.Equal(t, 500, cfg.Augment.CacheEntries)
	assert.Equal(t, filepath.Join(dir, "cache", "augment.db"), cfg.Cache.Path)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)

	lc, err := cfg.Lint.ToLintConfig()
	require.NoError(t, err)
	assert.True(t, lc.IsDisabled("CUN-GS-001"))
	assert.Equal(t, core.SeverityInfo, lc.GetSeverity("CUN-REF-002", core.SeverityError))
	assert.EqualValues(t, 300, lc.GetRuleOptions("CUN-GS-005")["max_words"])
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	ResetConfig()
	dir, path := writeConfig(t, "output: markdown\n")
	nested := filepath.Join(dir, "a", "b")
	testutil.WriteFile(t, nested, "doc.txt", "x")
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_Env(t *testing.T) {
	ResetConfig()
	_, path := writeConfig(t, fileConfig)

	t.Setenv("APALINT_AUGMENT_MODEL", "from_env")
	t.Setenv("APALINT_AUGMENT_TIMEOUT", "7s")
	t.Setenv("APALINT_SERVER_API_KEYS", "a,b,c")
	t.Setenv("APALINT_LOG_LEVEL", "info")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Augment.Model)
	assert.Equal(t, 7*time.Second, cfg.Augment.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sk-fallback", cfg.Augment.APIKey)

	t.Setenv("APALINT_AUGMENT_API_KEY", "sk-explicit")
	cfg, err = LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", cfg.Augment.APIKey)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	_, path := writeConfig(t, fileConfig)
	t.Setenv("APALINT_OUTPUT", "markdown")
	t.Setenv("APALINT_RULES_DIR", "from_env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rules-dir", "", "")
	flags.StringP("output", "o", "", "")
	flags.String("variant", "", "")
	flags.Bool("verbose", false, "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Set("output", "text"))
	require.NoError(t, flags.Set("rules-dir", "from_flag"))
	require.NoError(t, flags.Set("variant", "official"))
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	abs, _ := filepath.Abs("from_flag")
	assert.Equal(t, abs, cfg.RulesDir)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, "official", cfg.Lint.Variant)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	_, path := writeConfig(t, fileConfig)
	t.Setenv("APALINT_OUTPUT", "markdown")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "")

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{"output", "output: xml\n", "output"},
		{"log level", "log_level: loud\n", "log_level"},
		{"cache backend", "cache:\n  backend: memcached\n", "cache backend"},
		{"redis without addr", "cache:\n  backend: redis\n", "redis_addr"},
		{"severity", "lint:\n  severity:\n    X-1: fatal\n", "unknown severity"},
		{"yaml", "output: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, path := writeConfig(t, tt.content)
			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"APALINT_AUGMENT_API_KEY", "augment.api_key"},
		{"APALINT_LINT_TIMEOUT", "lint.timeout"},
		{"APALINT_SERVER_CORS_ORIGINS", "server.cors_origins"},
		{"APALINT_RULES_DIR", "rules_dir"},
		{"APALINT_LOG_LEVEL", "log_level"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envKey(tt.in), tt.in)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelWarn, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelWarn, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(t.Context()))
	logger := slog.New(slog.DiscardHandler)
	assert.Same(t, logger, GetLogger(WithLogger(t.Context(), logger)))
}

func TestFlagKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"variant", "lint.variant"},
		{"timeout", "lint.timeout"},
		{"document-type", "lint.document_type"},
		{"institution", "lint.institution"},
		{"model", "augment.model"},
		{"augment", "augment.enabled"},
		{"cache", "cache.backend"},
		{"addr", "server.addr"},
		{"rules-dir", "rules_dir"},
		{"log-level", "log_level"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, flagKey(tt.in), tt.in)
	}
}
