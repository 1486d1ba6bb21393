package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1280, cfg.Graphics.Width)
	assert.Equal(t, 720, cfg.Graphics.Height)
	assert.False(t, cfg.Graphics.Fullscreen)
	assert.True(t, cfg.Graphics.VSync)
	assert.Equal(t, 4, cfg.Graphics.Msaa)
	assert.Equal(t, "off", cfg.Graphics.ScreenSpaceAA)
	assert.Equal(t, "high", cfg.Graphics.ShadowDetail)
	assert.Equal(t, "linear", cfg.Graphics.TextureFiltering)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadEmptyPathWithoutFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("graphics:\n  width: 1920\n  height: 1080\n  screen_space_aa: cmaa2\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1920, cfg.Graphics.Width)
	assert.Equal(t, 1080, cfg.Graphics.Height)
	assert.Equal(t, "cmaa2", cfg.Graphics.ScreenSpaceAA)
	// Untouched fields keep their defaults.
	assert.Equal(t, 4, cfg.Graphics.Msaa)
	assert.Equal(t, "high", cfg.Graphics.ShadowDetail)
}

func TestLoadRestoresDefaultsForExplicitZeroes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("graphics:\n  width: 0\n  height: 0\nlogging:\n  level: \"\"\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Graphics.Width)
	assert.Equal(t, 720, cfg.Graphics.Height)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Graphics.Msaa = 8
	cfg.Graphics.ShadowDetail = "ultra"
	cfg.Logging.Level = "debug"

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
