package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "auto"},
		Run:      RunConfig{Mode: "parallel", MaxParallel: 3, Timeout: "10m", MaxRetries: 2},
		Engine:   EngineConfig{Name: "claude", CompletionToken: "<promise>COMPLETE</promise>"},
		State:    StateConfig{Backend: "sqlite", Path: ".atrium/state/session.db"},
		Git:      GitConfig{WorktreeDir: ".worktrees", BaseBranch: "main"},
		GitHub:   GitHubConfig{Remote: "origin"},
		Hooks:    HooksConfig{},
		Validate: ValidateConfig{},
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_RejectsBadLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestValidateConfig_RejectsBadRunMode(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Run.Mode = "async"
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run.mode")
}

func TestValidateConfig_RejectsZeroMaxParallel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Run.MaxParallel = 0
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run.max_parallel")
}

func TestValidateConfig_RejectsBadTimeoutFormat(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Run.Timeout = "not-a-duration"
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run.timeout")
}

func TestValidateConfig_RejectsMissingEngineName(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Engine.Name = ""
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.name")
}

func TestValidateConfig_RejectsBadStateBackend(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.State.Backend = "redis"
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state.backend")
}

func TestValidateConfig_CollectsMultipleErrors(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	cfg.Git.BaseBranch = ""
	errs, ok := ValidateConfig(cfg).(ValidationErrors)
	require.True(t, ok)
	assert.True(t, errs.HasErrors())
	assert.Len(t, errs, 2)
}
