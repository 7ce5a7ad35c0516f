package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"server": {"port": "9090"},
		"node": {"url": "http://node:6688", "token": "abc"},
		"export": {"output_dir": "/tmp/defs"},
		"jobs": {
			"max_concurrent": 2,
			"predefined": [
				{"name": "export", "schedule": "*/5 * * * *", "task": "export-definitions", "enabled": true}
			]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://node:6688", cfg.Node.URL)
	assert.Equal(t, "abc", cfg.Node.Token)
	assert.Equal(t, "5m", cfg.Node.CacheTTL, "unset keys keep their defaults")
	assert.Equal(t, "/tmp/defs", cfg.Export.OutputDir)
	assert.Equal(t, "1m", cfg.Poller.Interval)
	assert.Equal(t, "30s", cfg.Poller.Timeout)
	assert.Equal(t, 2, cfg.Jobs.MaxConcurrent)
	require.Len(t, cfg.Jobs.Predefined, 1)
	assert.Equal(t, "export-definitions", cfg.Jobs.Predefined[0].TaskName)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("NODE_URL", "http://env-node:6688")
	t.Setenv("EXPORT_DIR", "out")
	t.Setenv("POLLER_INTERVAL", "30s")
	t.Setenv("POLLER_TIMEOUT", "5s")
	t.Setenv("CACHE_TTL", "1m")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "http://env-node:6688", cfg.Node.URL)
	assert.Equal(t, "out", cfg.Export.OutputDir)
	assert.Equal(t, "30s", cfg.Poller.Interval)
	assert.Equal(t, "5s", cfg.Poller.Timeout)
	assert.Equal(t, "1m", cfg.Node.CacheTTL)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseDuration("30s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-5s", time.Minute))
}

func TestLoadWatchListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	content := `legacy:
  - id: 3a1f4b9c
    description: ETH/USD legacy feed
typed:
  - id: "1"
    description: ETH/USD flux monitor
  - id: "2"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	list, err := LoadWatchListFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Len())
	assert.Equal(t, "3a1f4b9c", list.Legacy[0].ID)
	assert.Equal(t, "ETH/USD flux monitor", list.Typed[0].Description)
	assert.Equal(t, "2", list.Typed[1].ID)
}

func TestFindWatchList(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "jobs.yaml"), []byte("legacy: []\n"), 0o644))

	nested := filepath.Join(root, "internal", "config")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := findWatchList(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "config", "jobs.yaml"), path)

	_, err = findWatchList(t.TempDir())
	assert.Error(t, err)
}
