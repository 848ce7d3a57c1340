package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
strix:
  log:
    level: debug
    format: json
  dissectors:
    - name: http
      options:
        max_body_bytes: 1024
    - name: tftp
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Dissectors, 2)
	assert.Equal(t, "http", cfg.Dissectors[0].Name)
	assert.Equal(t, 1024, cfg.Dissectors[0].Options["max_body_bytes"])
	assert.Equal(t, "tftp", cfg.Dissectors[1].Name)
	assert.Nil(t, cfg.Dissectors[1].Options)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
strix:
  dissectors: []
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 100, cfg.Log.File.MaxSizeMB)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
strix:
  log:
    format: xml
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log format")
}

func TestValidate_FileOutputNeedsPath(t *testing.T) {
	cfg := &GlobalConfig{
		Log: LogConfig{Level: "info", Format: "text",
			File: FileLogConfig{Enabled: true}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no path configured")
}

func TestValidate_DuplicateDissector(t *testing.T) {
	cfg := &GlobalConfig{
		Log: LogConfig{Level: "info", Format: "text"},
		Dissectors: []DissectorConfig{
			{Name: "http"},
			{Name: "http"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured twice")
}

func TestValidate_EmptyDissectorName(t *testing.T) {
	cfg := &GlobalConfig{
		Log:        LogConfig{Level: "info", Format: "text"},
		Dissectors: []DissectorConfig{{Name: ""}},
	}

	assert.Error(t, cfg.Validate())
}
