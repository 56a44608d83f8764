package gitops_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/gitops"
	"github.com/atrium-run/atrium/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, repo *testutil.GitRepo) (*gitops.WorktreeManager, string) {
	t.Helper()
	baseDir := testutil.TempDir(t)
	mgr, err := gitops.New(repo.Path, baseDir, "demo", nil)
	require.NoError(t, err)
	return mgr, baseDir
}

func TestWorktreeManager_CanonicalPathIsPure(t *testing.T) {
	t.Parallel()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# demo")
	repo.Commit("init")

	mgr, baseDir := newManager(t, repo)
	p1 := mgr.CanonicalPath("T00-001")
	p2 := mgr.CanonicalPath("T00-001")
	assert.Equal(t, p1, p2)
	assert.Equal(t, filepath.Join(baseDir, "demo", "T00-001"), p1)
}

func TestWorktreeManager_CreateThenIdempotent(t *testing.T) {
	t.Parallel()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# demo")
	repo.Commit("init")

	mgr, _ := newManager(t, repo)
	ctx := context.Background()

	handle, err := mgr.Create(ctx, "T00-001", core.CreateWorktreeOptions{BaseBranch: "main"})
	require.NoError(t, err)
	assert.Equal(t, "demo/t00-001", handle.Branch)
	_, statErr := os.Stat(handle.Path)
	require.NoError(t, statErr)

	// Calling Create again for the same task must not fail or create a
	// second worktree at a different path.
	handle2, err := mgr.Create(ctx, "T00-001", core.CreateWorktreeOptions{BaseBranch: "main"})
	require.NoError(t, err)
	assert.Equal(t, handle.Path, handle2.Path)
}

func TestWorktreeManager_CommitAndPush(t *testing.T) {
	t.Parallel()
	remote := testutil.NewGitRepo(t)
	remote.Commit("init")
	_, err := remote.Run("config", "receive.denyCurrentBranch", "updateInstead")
	require.NoError(t, err)

	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# demo")
	repo.Commit("init")
	_, err = repo.Run("remote", "add", "origin", remote.Path)
	require.NoError(t, err)

	mgr, _ := newManager(t, repo)
	ctx := context.Background()
	handle, err := mgr.Create(ctx, "T00-002", core.CreateWorktreeOptions{BaseBranch: "main"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(handle.Path, "new.txt"), []byte("hi"), 0o644))

	commitID, err := mgr.Commit(ctx, "T00-002", "add file", true)
	require.NoError(t, err)
	assert.NotEmpty(t, commitID)

	// A second commit attempt with nothing changed must report
	// ErrNothingToCommit.
	_, err = mgr.Commit(ctx, "T00-002", "nothing changed", true)
	assert.ErrorIs(t, err, core.ErrNothingToCommit)

	err = mgr.Push(ctx, "T00-002", true, "origin")
	require.NoError(t, err)
}

func TestWorktreeManager_ChangedFilesAndDiff(t *testing.T) {
	t.Parallel()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# demo")
	repo.Commit("init")

	mgr, _ := newManager(t, repo)
	ctx := context.Background()
	handle, err := mgr.Create(ctx, "T00-003", core.CreateWorktreeOptions{BaseBranch: "main"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(handle.Path, "changed.txt"), []byte("data"), 0o644))

	dirty, err := mgr.HasUncommittedChanges(ctx, "T00-003")
	require.NoError(t, err)
	assert.True(t, dirty)

	files, err := mgr.ChangedFiles(ctx, "T00-003")
	require.NoError(t, err)
	assert.Contains(t, files, "changed.txt")
}

func TestWorktreeManager_Remove(t *testing.T) {
	t.Parallel()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# demo")
	repo.Commit("init")

	mgr, _ := newManager(t, repo)
	ctx := context.Background()
	handle, err := mgr.Create(ctx, "T00-004", core.CreateWorktreeOptions{BaseBranch: "main"})
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(ctx, "T00-004", true))
	_, statErr := os.Stat(handle.Path)
	assert.True(t, os.IsNotExist(statErr))

	// Removing again is a no-op.
	assert.NoError(t, mgr.Remove(ctx, "T00-004", true))
}
