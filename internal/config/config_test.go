package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookbinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./library", cfg.Library.Path)
	assert.Equal(t, 2, cfg.Exports.Workers)
	assert.Equal(t, 24*time.Hour, cfg.Artifacts.RetentionDuration())
	assert.Equal(t, time.Hour, cfg.Artifacts.SweepIntervalDuration())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
artifacts:
  path: /var/lib/bookbinder
  retention: 48h
  sweep_interval: 30m
exports:
  workers: 4
formats:
  disabled: [html, markdown]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/bookbinder", cfg.Artifacts.Path)
	assert.Equal(t, 48*time.Hour, cfg.Artifacts.RetentionDuration())
	assert.Equal(t, 30*time.Minute, cfg.Artifacts.SweepIntervalDuration())
	assert.Equal(t, 4, cfg.Exports.Workers)
	assert.Equal(t, []string{"html", "markdown"}, cfg.Formats.Disabled)
	// Unmentioned sections keep their defaults.
	assert.Equal(t, "./library", cfg.Library.Path)
}

func TestLoadMissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct{ name, content string }{
		{"negative workers", "exports:\n  workers: -1\n"},
		{"bad retention", "artifacts:\n  retention: yesterday\n"},
		{"bad log level", "logging:\n  level: loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOOKBINDER_ADDR", ":7070")
	t.Setenv("BOOKBINDER_WORKERS", "8")
	t.Setenv("BOOKBINDER_RETENTION", "72h")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Exports.Workers)
	assert.Equal(t, 72*time.Hour, cfg.Artifacts.RetentionDuration())
}

func TestEnvExpansionInFile(t *testing.T) {
	t.Setenv("LIB_DIR", "/srv/manuscripts")
	path := writeConfig(t, "library:\n  path: ${LIB_DIR}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/manuscripts", cfg.Library.Path)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookbinder.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	require.Error(t, Init(path, false), "refuses to overwrite without force")
	require.NoError(t, Init(path, true))
}

func TestShutdownTimeoutDefault(t *testing.T) {
	assert.Equal(t, 10*time.Second, ServerConfig{}.ShutdownTimeoutDuration())
	assert.Equal(t, 3*time.Second, ServerConfig{ShutdownTimeout: "3s"}.ShutdownTimeoutDuration())
}
