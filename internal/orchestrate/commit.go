package orchestrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/atrium-run/atrium/internal/core"
)

// commitPushAndPR implements spec §4.7's commit/push/PR step: commit only if
// the worktree has uncommitted changes (idempotent on retry), push with
// upstream set, then best-effort PR creation that never fails the task.
func (e *Executor) commitPushAndPR(ctx context.Context, task *core.Task, handle core.WorktreeHandle) (prLink string, err error) {
	dirty, err := e.Worktrees.HasUncommittedChanges(ctx, task.ID)
	if err != nil {
		return "", core.ErrCommitPushFailure(string(task.ID), err)
	}
	if dirty {
		message := fmt.Sprintf("%s: %s\n\n%s", task.ID, task.Name, e.CommitTrailer)
		if _, err := e.Worktrees.Commit(ctx, task.ID, message, true); err != nil && !errors.Is(err, core.ErrNothingToCommit) {
			return "", core.ErrCommitPushFailure(string(task.ID), err)
		}
		if err := e.Worktrees.Push(ctx, task.ID, true, "origin"); err != nil {
			return "", core.ErrCommitPushFailure(string(task.ID), err)
		}
	}

	if e.PRCreator == nil {
		return "", nil
	}
	title := fmt.Sprintf("%s: %s", task.ID, task.Name)
	body := task.Description
	url, err := e.PRCreator.CreatePullRequest(ctx, task.ID, handle.Branch, title, body)
	if err != nil {
		// Fire-and-forget: a PR failure is a warning, never a task failure.
		e.Logger.Warn("pr creation failed", "task", task.ID, "error", err)
		return "", nil
	}
	return url, nil
}
