package orchestrate

import (
	"context"
	"fmt"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/schedule"
)

// Resume implements spec §4.7's crash-recovery algorithm:
//  1. fail if the session database doesn't exist (handled by the caller
//     constructing Store),
//  2. if no active session exists, report completion and stop,
//  3. if currentTask is set, prepend it back onto pendingTasks,
//  4. load the task records for the remaining pendingTasks,
//  5. re-run the wave pipeline on that reduced set — the scheduler runs
//     fresh so intra-subset dependencies are respected, and dependencies on
//     already-completed tasks are transitively satisfied by their absence.
func (e *Executor) Resume(ctx context.Context, project string, loadTasks func(ids []core.TaskID) ([]*core.Task, error), mode RunMode) error {
	sess, err := e.Store.GetActive(ctx, project)
	if err != nil {
		return fmt.Errorf("loading active session: %w", err)
	}
	if sess == nil {
		e.Logger.Info("resume: no active session, nothing to do", "project", project)
		return nil
	}

	if sess.CurrentTask != nil {
		e.Logger.Info("resume: resuming interrupted task", "task", *sess.CurrentTask)
		sess.PrependCurrentToPending()
		if err := e.persistResumeState(ctx, sess); err != nil {
			return fmt.Errorf("persisting resume state: %w", err)
		}
	}

	if len(sess.PendingTasks) == 0 {
		e.Logger.Info("resume: no pending tasks remain", "session", sess.ID)
		return nil
	}

	tasks, err := loadTasks(sess.PendingTasks)
	if err != nil {
		return fmt.Errorf("loading pending task records: %w", err)
	}

	waves, err := schedule.BuildExecutionWaves(tasks)
	if err != nil {
		return fmt.Errorf("scheduling resumed tasks: %w", err)
	}

	return e.RunWaves(ctx, sess.ID, waves, mode)
}

// ResumePoint is an optional extension a SessionStore may implement to
// persist the crash-recovery move (currentTask prepended back onto
// pendingTasks, currentTask cleared) atomically, the same way every other
// session mutation goes through a single auditable verb (§4.5). Stores that
// don't implement it are expected to have already reflected this move by
// the time GetActive returned sess (e.g. an in-memory test double).
type ResumePoint interface {
	ResumeInterruptedTask(ctx context.Context, sessionID string) error
}

func (e *Executor) persistResumeState(ctx context.Context, sess *core.Session) error {
	if r, ok := e.Store.(ResumePoint); ok {
		return r.ResumeInterruptedTask(ctx, sess.ID)
	}
	return nil
}

// requeueForRetry performs the same currentTask-back-onto-pendingTasks move
// as a crash resume, but between a task's outer-retry attempts instead of
// across a process restart: it's what lets the next attempt's StartTask
// find the task in pendingTasks again instead of erroring.
func (e *Executor) requeueForRetry(ctx context.Context, sessionID string) error {
	if r, ok := e.Store.(ResumePoint); ok {
		return r.ResumeInterruptedTask(ctx, sessionID)
	}
	return nil
}
