package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "schemadraft.yaml", `
plugin_id: builder
load_timeout: 5s
log:
  level: debug
  format: json
source:
  name: local
  type: file
  config:
    path: ./catalog
notify:
  type: amqp
  config:
    url: amqp://localhost
    queue: catalog
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "builder", cfg.PluginID)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "file", cfg.Source.Type)
	assert.Equal(t, "./catalog", cfg.Source.Config["path"])
	assert.Equal(t, filepath.Dir(path), cfg.Source.BaseDir)
	assert.Equal(t, "amqp", cfg.Notify.Type)
	assert.Equal(t, "catalog", cfg.Notify.Config["queue"])
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeConfig(t, "schemadraft.json", `{"source": {"type": "http", "config": {"base_url": "http://localhost:1337"}}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultPluginID, cfg.PluginID)
	assert.Equal(t, DefaultLoadTimeout, cfg.Timeout())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "http", cfg.Source.Name)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "bad.yaml", "plugin_id: [\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "load_timeout: soon\n"))
	assert.ErrorContains(t, err, "load_timeout")

	_, err = Load(writeConfig(t, "bad.yaml", "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log")

	_, err = Load(writeConfig(t, "bad.yaml", "plugin_id: a/b\n"))
	assert.ErrorContains(t, err, "plugin_id")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPluginID, cfg.PluginID)
}
