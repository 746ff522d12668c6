package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutOverlay(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Service.RootDir)
	assert.Equal(t, 256, cfg.Cache.PatternCapacity)
	assert.Equal(t, 1000, cfg.Limits.MaxResults)
}

func TestLoadOverlayOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	overlay := "[limits]\nmax_results = 50\n\n[cache]\npattern_capacity = 64\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sgmcp.toml"), []byte(overlay), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Limits.MaxResults)
	assert.Equal(t, 64, cfg.Cache.PatternCapacity)
	assert.Equal(t, dir, cfg.Service.RootDir, "overlay must not relocate root")
}

func TestLoadRejectsInvalidOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := "[limits]\nmax_results = -1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sgmcp.toml"), []byte(overlay), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestWorkerCountDefaultsToNumCPU(t *testing.T) {
	cfg := Default(".")
	assert.Greater(t, cfg.WorkerCount(), 0)
	cfg.Service.Workers = 4
	assert.Equal(t, 4, cfg.WorkerCount())
}
