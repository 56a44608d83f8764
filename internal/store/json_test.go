package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-run/atrium/internal/core"
)

func TestJSONStore_CreateCheckpointResume(t *testing.T) {
	t.Parallel()
	s, err := OpenJSON(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001", "T00-002"})
	require.NoError(t, err)

	active, err := s.GetActive(ctx, "proj")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sess.ID, active.ID)

	require.NoError(t, s.StartTask(ctx, sess.ID, "T00-001"))
	require.NoError(t, s.Checkpoint(ctx, sess.ID, "T00-001", core.CheckpointCompleted, "", 0, ""))
	require.NoError(t, s.StartTask(ctx, sess.ID, "T00-002"))

	require.NoError(t, s.ResumeInterruptedTask(ctx, sess.ID))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentTask)
	assert.Equal(t, []core.TaskID{"T00-002"}, got.PendingTasks)
	assert.Contains(t, got.CompletedTasks, core.TaskID("T00-001"))
}

func TestOpenBackend_UnsupportedName(t *testing.T) {
	t.Parallel()
	_, err := OpenBackend("yaml", t.TempDir()+"/state")
	assert.Error(t, err)
}
