package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-run/atrium/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_CreateThenGetActive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001", "T00-002"})
	require.NoError(t, err)

	active, err := s.GetActive(ctx, "proj")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sess.ID, active.ID)
	assert.Equal(t, []core.TaskID{"T00-001", "T00-002"}, active.PendingTasks)
}

func TestSQLiteStore_StartTaskThenCheckpointCompleted(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001"})
	require.NoError(t, err)

	require.NoError(t, s.StartTask(ctx, sess.ID, "T00-001"))
	require.NoError(t, s.Checkpoint(ctx, sess.ID, "T00-001", core.CheckpointCompleted, "", 0, ""))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentTask)
	assert.Contains(t, got.CompletedTasks, core.TaskID("T00-001"))
	assert.NotContains(t, got.PendingTasks, core.TaskID("T00-001"))
	require.Len(t, got.Checkpoints, 1)
	assert.Equal(t, core.CheckpointCompleted, got.Checkpoints[0].Status)
}

func TestSQLiteStore_StartTaskWithoutCheckpoint_CrashSimulation(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001"})
	require.NoError(t, err)
	require.NoError(t, s.StartTask(ctx, sess.ID, "T00-001"))
	require.NoError(t, s.Close())

	// Reopen the store file, simulating a process crash and restart.
	s2, err := Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentTask)
	assert.Equal(t, core.TaskID("T00-001"), *got.CurrentTask)
	assert.Empty(t, got.PendingTasks)
}

func TestSQLiteStore_RecordErrorIsMonotonic(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001"})
	require.NoError(t, err)

	require.NoError(t, s.RecordError(ctx, sess.ID, "T00-001", "boom 1"))
	require.NoError(t, s.RecordError(ctx, sess.ID, "T00-001", "boom 2"))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	errEntry := got.Errors["T00-001"]
	require.NotNil(t, errEntry)
	assert.Equal(t, 2, errEntry.Iterations)
	assert.Equal(t, "boom 2", errEntry.LastError)
	assert.True(t, errEntry.Retried)
	assert.False(t, errEntry.Resolved)

	require.NoError(t, s.ResolveError(ctx, sess.ID, "T00-001"))
	got, err = s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Errors["T00-001"].Resolved)
	assert.Equal(t, 2, got.Errors["T00-001"].Iterations)
}

func TestSQLiteStore_CheckpointsReturnedInAppendOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001", "T00-002", "T00-003"})
	require.NoError(t, err)

	for _, id := range []core.TaskID{"T00-001", "T00-002", "T00-003"} {
		require.NoError(t, s.StartTask(ctx, sess.ID, id))
		require.NoError(t, s.Checkpoint(ctx, sess.ID, id, core.CheckpointCompleted, "", time.Millisecond, ""))
	}

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Checkpoints, 3)
	for i := 1; i < len(got.Checkpoints); i++ {
		assert.False(t, got.Checkpoints[i].Timestamp.Before(got.Checkpoints[i-1].Timestamp))
	}
	assert.Equal(t, core.TaskID("T00-001"), got.Checkpoints[0].TaskID)
	assert.Equal(t, core.TaskID("T00-003"), got.Checkpoints[2].TaskID)
}

func TestSQLiteStore_RegisterSideEffects(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001"})
	require.NoError(t, err)

	require.NoError(t, s.RegisterWorktree(ctx, sess.ID, "T00-001", "/tmp/wt/T00-001"))
	require.NoError(t, s.RegisterBranch(ctx, sess.ID, "T00-001", "proj/t00-001"))
	require.NoError(t, s.RegisterPR(ctx, sess.ID, "T00-001", "https://example.invalid/pr/1"))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/wt/T00-001", got.Worktrees["T00-001"])
	assert.Equal(t, "proj/t00-001", got.Branches["T00-001"])
	assert.Equal(t, "https://example.invalid/pr/1", got.PRs["T00-001"])
}

func TestSQLiteStore_Delete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, sess.ID))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ResumeInterruptedTask(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001", "T00-002"})
	require.NoError(t, err)
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

func TestSQLiteStore_ListAllMostRecentFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "proj", "p00", []core.TaskID{"T00-001"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.Create(ctx, "proj", "p01", []core.TaskID{"T01-001"})
	require.NoError(t, err)

	all, err := s.ListAll(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}
