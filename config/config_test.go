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
	path := filepath.Join(t.TempDir(), "tyto.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  enabledCallerInfo: true
  levelOverrides:
    net.client: warn
plugin:
  appender:
    console:
      stderr: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.EnabledCallerInfo)
	assert.Equal(t, "warn", cfg.Log.LevelOverrides["net.client"])

	appenders, ok := cfg.Plugin["appender"].(map[string]any)
	require.True(t, ok, "plugin section should stay a raw map")
	console, ok := appenders["console"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, console["stderr"])
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `plugin: {}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level, "empty log section should validate to defaults")
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		path := writeConfig(t, "log: [unclosed")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("WrongFieldType", func(t *testing.T) {
		path := writeConfig(t, `
log:
  enabledCallerInfo: "definitely"
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("InvalidLogSection", func(t *testing.T) {
		path := writeConfig(t, `
log:
  callerSkip: -2
`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestLoadMap(t *testing.T) {
	path := writeConfig(t, `
plugin:
  appender:
    rolling:
      path: /tmp/app.log
`)
	raw, err := LoadMap(path)
	require.NoError(t, err)

	pluginSection, ok := raw["plugin"].(map[string]any)
	require.True(t, ok, "yaml.v3 should produce string-keyed maps")
	_, ok = pluginSection["appender"].(map[string]any)
	assert.True(t, ok)
}
