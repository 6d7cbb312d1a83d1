package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
	"github.com/felixgeelhaar/wavekeeper/internal/hooks"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// isolated loads with no config file and no .env.
func isolated(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{DotEnv: filepath.Join(dir, ".env"), SearchPaths: []string{dir}}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(isolated(t))
	require.NoError(t, err)

	assert.Equal(t, forecast.DefaultPolicy(), cfg.Policy)
	assert.Equal(t, "04:30", cfg.Reset.Time)
	assert.Equal(t, 8, cfg.Reset.UTCOffsetHr)
	assert.Equal(t, "Daily Task", cfg.Tasks.Daily.Name)
	assert.Equal(t, 20*time.Minute, cfg.Tasks.Daily.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Tasks.Login.Timeout)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 10*time.Second, cfg.Retry.Delay)
	assert.Equal(t, 3000, cfg.Farm.EchoCap)
	assert.True(t, cfg.Farm.ShutdownAfter)
	assert.Equal(t, sheets.LayoutCells, cfg.Sheets.Layout)
	assert.Equal(t, "DailyRuns", cfg.Sheets.DailySheet)
	assert.True(t, cfg.Journal.Enabled)
	assert.Empty(t, cfg.File)
	assert.ElementsMatch(t, policyKeys, cfg.PolicyDefaults)
	assert.False(t, cfg.Sheets.Enabled())
}

func TestDefaultMatchesLoad(t *testing.T) {
	cfg, err := Load(isolated(t))
	require.NoError(t, err)
	assert.Equal(t, cfg, Default())
}

func TestLoadFile(t *testing.T) {
	opts := isolated(t)
	opts.File = writeFile(t, t.TempDir(), "wavekeeper.yaml", `
policy:
  target: 200
  backup_weight: 1
  backup_basis: growth
tasks:
  daily:
    timeout: 30m
farm:
  stop_at: "02:15"
hooks:
  - name: ping
    type: webhook
    enabled: true
    events: [on_run_complete]
    failure_mode: ignore
    config:
      url: https://example.test/hook
`)

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, opts.File, cfg.File)
	assert.Equal(t, 200, cfg.Policy.Target)
	assert.Equal(t, 1, cfg.Policy.BackupWeight)
	assert.Equal(t, forecast.BasisGrowth, cfg.Policy.BackupBasis)
	assert.Empty(t, cfg.PolicyDefaults)
	assert.Equal(t, 30*time.Minute, cfg.Tasks.Daily.Timeout)
	assert.Equal(t, "02:15", cfg.Farm.StopAt)

	require.Len(t, cfg.Hooks, 1)
	assert.Equal(t, "webhook", cfg.Hooks[0].Type)
	assert.Equal(t, "https://example.test/hook", cfg.Hooks[0].Config["url"])
	assert.Equal(t, cfg.Hooks, cfg.HookConfigs())
}

func TestLoadSearchPath(t *testing.T) {
	opts := isolated(t)
	writeFile(t, opts.SearchPaths[0], "wavekeeper.yaml", "farm:\n  echo_cap: 2000\n")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Farm.EchoCap)
	assert.NotEmpty(t, cfg.File)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	opts := isolated(t)
	opts.File = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(opts)
	assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeFileNotFound))
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("WAVEKEEPER_POLICY_TARGET", "180")
	t.Setenv("WAVEKEEPER_RUNTIME_URL", "http://10.0.0.5:8765")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-123")
	t.Setenv("MAILGUN_API_KEY", "key-abc")
	t.Setenv("WAVES_ROLE_ID", "100123456")

	cfg, err := Load(isolated(t))
	require.NoError(t, err)

	assert.Equal(t, 180, cfg.Policy.Target)
	assert.NotContains(t, cfg.PolicyDefaults, "policy.target")
	assert.Equal(t, "http://10.0.0.5:8765", cfg.Runtime.URL)
	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "key-abc", cfg.Mailgun.APIKey)
	assert.Equal(t, "100123456", cfg.GameAPI.RoleID)
}

func TestPrefixedEnvBeatsLegacy(t *testing.T) {
	t.Setenv("WAVEKEEPER_SHEETS_SPREADSHEET_ID", "new")
	t.Setenv("GOOGLE_SHEET_ID", "old")

	cfg, err := Load(isolated(t))
	require.NoError(t, err)
	assert.Equal(t, "new", cfg.Sheets.SpreadsheetID)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "WAVEKEEPER_DOTENV_PROBE=from-file\nWAVEKEEPER_DOTENV_KEPT=from-file\n")
	t.Setenv("WAVEKEEPER_DOTENV_KEPT", "from-env")
	t.Setenv("WAVEKEEPER_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("WAVEKEEPER_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("WAVEKEEPER_DOTENV_PROBE"))
	assert.Equal(t, "from-env", os.Getenv("WAVEKEEPER_DOTENV_KEPT"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad policy", func(c *Config) { c.Policy.SpendUnit = 0 }},
		{"bad reset time", func(c *Config) { c.Reset.Time = "25:00" }},
		{"bad stop time", func(c *Config) { c.Farm.StopAt = "noon" }},
		{"offset out of range", func(c *Config) { c.Reset.UTCOffsetHr = 20 }},
		{"zero task timeout", func(c *Config) { c.Tasks.Daily.Timeout = 0 }},
		{"empty task name", func(c *Config) { c.Tasks.Merge.Name = "" }},
		{"no retry attempts", func(c *Config) { c.Retry.Attempts = 0 }},
		{"zero echo cap", func(c *Config) { c.Farm.EchoCap = 0 }},
		{"unknown layout", func(c *Config) { c.Sheets.Layout = "grid" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"unknown filter level", func(c *Config) {
			c.Log.Filters = []log.FilterRule{{Name: "x", Level: []string{"loud"}}}
		}},
		{"bad hook mode", func(c *Config) {
			c.Hooks = []hooks.HookConfig{{Name: "x", Type: hooks.TypeWebhook, FailureMode: "fail"}}
		}},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeConfigInvalid), "got %v", err)
		})
	}
}

func TestResetDaily(t *testing.T) {
	r, err := Default().Reset.Daily()
	require.NoError(t, err)
	assert.Equal(t, 4, r.Hour)
	assert.Equal(t, 30, r.Minute)

	// 20:30 UTC is 04:30 the next day at UTC+8.
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, r.MinutesUntil(now))
}

func TestHookConfigsDefaults(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.HookConfigs())

	cfg.Sheets.SpreadsheetID = "id"
	names := []string{}
	for _, h := range cfg.HookConfigs() {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "sheet-rows")
	assert.NotContains(t, names, "email")
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Mailgun.APIKey = "key-secret"
	cfg.GameAPI.Token = "tok"
	cfg.Hooks = []hooks.HookConfig{{
		Name:   "ping",
		Type:   hooks.TypeWebhook,
		Config: map[string]any{"url": "u", "headers": map[string]any{"Authorization": "Bearer x"}},
	}}

	r := cfg.Redacted()
	assert.Equal(t, "***", r.Mailgun.APIKey)
	assert.Equal(t, "***", r.GameAPI.Token)
	assert.Empty(t, r.Runtime.Token)
	assert.Equal(t, "***", r.Hooks[0].Config["headers"])
	assert.Equal(t, "u", r.Hooks[0].Config["url"])

	assert.Equal(t, "key-secret", cfg.Mailgun.APIKey, "original untouched")
	assert.IsType(t, map[string]any{}, cfg.Hooks[0].Config["headers"])
}

func TestLoggerTeesToFile(t *testing.T) {
	cfg := Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "wavekeeper.log")

	logger, closer, err := cfg.Logger("wavekeeper", "test")
	require.NoError(t, err)
	logger.Info("hello from test")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
