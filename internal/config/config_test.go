package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Zero(t, cfg.Timeout)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
fs:
  max_write_size: 1024
timeout: 1m30s
repl:
  history_file: /tmp/history
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "unset fields keep defaults")
	assert.EqualValues(t, 1024, cfg.FS.MaxWriteSize)
	assert.EqualValues(t, 10*1024*1024, cfg.FS.MaxFileSize)
	assert.Equal(t, 90*time.Second, cfg.Timeout.Std())
	assert.Equal(t, "/tmp/history", cfg.REPL.HistoryFile)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"bad level":     "log:\n  level: verbose\n",
		"bad format":    "log:\n  format: xml\n",
		"negative size": "fs:\n  max_file_size: -1\n",
		"bad duration":  "timeout: soon\n",
		"unknown key":   "colour: blue\n",
		"negative time": "timeout: -5s\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "vehicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_limit: 64\n"), 0644))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.OutputLimit)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	out, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema should have properties")
	for _, key := range []string{"log", "fs", "output_limit", "timeout", "repl"} {
		assert.Contains(t, props, key)
	}

	assert.Contains(t, string(out), "Go duration string")
	assert.Contains(t, string(out), `"console"`)
}
