package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-run/atrium/internal/core"
)

func TestShellRunner_InjectsContextEnv(t *testing.T) {
	t.Parallel()
	r := NewShellRunner()
	hc := core.HookContext{
		Project: "demo", Phase: "p00", TaskID: "T00-001",
		TaskName: "seed db", Status: "success",
	}
	result, err := r.Run(context.Background(), core.HookAfterTask,
		`test "$ATRIUM_PROJECT" = "demo" && test "$ATRIUM_TASK_ID" = "T00-001"`, hc)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestShellRunner_EmptyCommandIsNoop(t *testing.T) {
	t.Parallel()
	r := NewShellRunner()
	result, err := r.Run(context.Background(), core.HookBeforeTask, "", core.HookContext{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestFire_WarningHookSwallowsError(t *testing.T) {
	t.Parallel()
	r := NewShellRunner()
	cfg := Config{OnError: "exit 1"}
	result, err := Fire(context.Background(), r, cfg, core.HookOnError, core.HookContext{})
	assert.NoError(t, err)
	assert.False(t, result.Success)
}

func TestFire_FatalHookPropagatesError(t *testing.T) {
	t.Parallel()
	r := NewShellRunner()
	cfg := Config{BeforeTask: "exit 1"}
	_, err := Fire(context.Background(), r, cfg, core.HookBeforeTask, core.HookContext{})
	assert.Error(t, err)
}
