package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FINCH_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Database.Path, "finch.db")
	assert.GreaterOrEqual(t, cfg.Import.Workers, 1)
	assert.Equal(t, 500, cfg.Import.ChunkSize)
	assert.Equal(t, 250, cfg.Import.ProgressEvery)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FINCH_IMPORT_WORKERS", "3")
	t.Setenv("FINCH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Import.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "/tmp/custom.db"

[import]
chunk_size = 42
currency = "AUD"
`), 0o644))
	t.Setenv("FINCH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, 42, cfg.Import.ChunkSize)
	assert.Equal(t, "AUD", cfg.Import.Currency)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("FINCH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Import.Currency = "GBP"
	require.NoError(t, Save(cfg))

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "GBP", reloaded.Import.Currency)
}
