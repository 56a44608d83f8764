package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "parallel", cfg.Run.Mode)
	assert.Equal(t, 3, cfg.Run.MaxParallel)
	assert.Equal(t, "claude", cfg.Engine.Name)
	assert.Equal(t, "sqlite", cfg.State.Backend)
	assert.Equal(t, "main", cfg.Git.BaseBranch)
}

func TestLoader_ProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".atrium"), 0o750))
	yaml := "run:\n  mode: sequential\n  max_parallel: 5\nengine:\n  name: codex\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".atrium", "config.yaml"), []byte(yaml), 0o600))
	t.Chdir(dir)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "sequential", cfg.Run.Mode)
	assert.Equal(t, 5, cfg.Run.MaxParallel)
	assert.Equal(t, "codex", cfg.Engine.Name)
	// Unspecified keys still fall back to defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_EnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ATRIUM_ENGINE_NAME", "gemini")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Engine.Name)
}

func TestLoader_ResolvesRelativeStatePathAgainstProjectDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".atrium"), 0o750))
	t.Chdir(dir)

	l := NewLoader()
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.State.Path))
	assert.True(t, filepath.IsAbs(cfg.Git.WorktreeDir))
}

func TestLoader_WithResolvePathsFalseKeepsRelative(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := NewLoader().WithResolvePaths(false).Load()
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(cfg.State.Path))
}
