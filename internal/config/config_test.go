package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".", "logs"), cfg.Logs.Directory)
	assert.Equal(t, 25, cfg.Logs.MaxSizeMB)
	assert.Equal(t, 7, cfg.Logs.MaxAgeDays)
	assert.Equal(t, 5, cfg.Logs.MaxBackups)
	assert.Equal(t, "en", cfg.Report.Lang)
	assert.Equal(t, 256, cfg.Report.QRSize)
	assert.Equal(t, time.Second, cfg.Dump.ProgressTick)
	assert.Equal(t, Default(), cfg)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeConfig(t, `
logs:
  directory: logs
  maxSizeMB: 10
  compress: true
report:
  title: Gait Lab
  lang: tr
  outputDir: /var/reports
dump:
  limit: 100
  skipInvalid: true
  progressInterval: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "logs"), cfg.Logs.Directory)
	assert.Equal(t, 10, cfg.Logs.MaxSizeMB)
	assert.True(t, cfg.Logs.Compress)
	assert.Equal(t, "Gait Lab", cfg.Report.Title)
	assert.Equal(t, "tr", cfg.Report.Lang)
	assert.Equal(t, "/var/reports", cfg.Report.OutputDir)
	assert.Equal(t, 100, cfg.Dump.Limit)
	assert.True(t, cfg.Dump.SkipInvalid)
	assert.Equal(t, 250*time.Millisecond, cfg.Dump.ProgressTick)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: "logs:\n  rotate: yes\n"},
		{name: "negative limit", body: "dump:\n  limit: -1\n"},
		{name: "malformed", body: "logs: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
