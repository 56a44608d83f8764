// Package orchestrate composes the task loader, scheduler, agent engine,
// worktree manager, hook runner, and session store into the run/resume
// state machines described in spec §4.7: it is the heart of the core.
package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/atrium-run/atrium/internal/agent"
	"github.com/atrium-run/atrium/internal/control"
	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/events"
	"github.com/atrium-run/atrium/internal/hooks"
	"github.com/atrium-run/atrium/internal/logging"
)

// outerRetries is the number of additional attempts the executor makes
// around a task's whole pipeline (worktree + agent + validation + commit)
// after the first, per spec §4.7's "per-task retry envelope (outer)".
const outerRetries = 2

// Options configures an Executor.
type Options struct {
	Project       string
	BaseBranch    string
	MaxParallel   int // wave-level concurrency bound; default 3 per spec §5
	Fast          bool // skip the lint/test validation step
	Validate      ValidateCommands
	CommitTrailer string
	Hooks         hooks.Config
	PromptBuilder PromptBuilder
	ExecuteOpts   core.ExecuteOptions
	Control       *control.ControlPlane

	// Events, if set, receives task/phase/session lifecycle events as the
	// run progresses — for a CLI --watch subscriber or a future dashboard.
	// Nil means no publishing.
	Events *events.EventBus
}

// Executor composes the core ports into the run/resume pipelines.
type Executor struct {
	Store         core.SessionStore
	Worktrees     core.WorktreeManager
	Engine        core.Engine
	HookRunner    core.HookRunner
	PRCreator     core.PullRequestCreator
	Logger        *logging.Logger

	Project       string
	BaseBranch    string
	MaxParallel   int
	Fast          bool
	Validate      ValidateCommands
	CommitTrailer string
	HookConfig    hooks.Config
	PromptBuilder PromptBuilder
	ExecuteOpts   core.ExecuteOptions

	// Control, if set, is consulted between waves: a pause blocks the
	// next wave from starting until resumed, and a cancel aborts the run
	// the same as a cancelled ctx would. Nil means no external control.
	Control *control.ControlPlane

	// Events, if set, receives task/phase/session lifecycle events. Nil
	// means no publishing.
	Events *events.EventBus
}

// New constructs an Executor from its ports and options.
func New(store core.SessionStore, worktrees core.WorktreeManager, engine core.Engine, hookRunner core.HookRunner, prCreator core.PullRequestCreator, logger *logging.Logger, opts Options) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 3
	}
	builder := opts.PromptBuilder
	if builder == nil {
		builder = DefaultPromptBuilder{}
	}
	execOpts := opts.ExecuteOpts
	if execOpts.Timeout <= 0 {
		execOpts = core.DefaultExecuteOptions()
	}
	trailer := opts.CommitTrailer
	if trailer == "" {
		trailer = "Automated commit by the task orchestrator."
	}
	return &Executor{
		Store:         store,
		Worktrees:     worktrees,
		Engine:        engine,
		HookRunner:    hookRunner,
		PRCreator:     prCreator,
		Logger:        logger,
		Project:       opts.Project,
		BaseBranch:    opts.BaseBranch,
		MaxParallel:   maxParallel,
		Fast:          opts.Fast,
		Validate:      opts.Validate,
		CommitTrailer: trailer,
		HookConfig:    opts.Hooks,
		PromptBuilder: builder,
		ExecuteOpts:   execOpts,
		Control:       opts.Control,
		Events:        opts.Events,
	}
}

// publish sends event to e.Events if set, a no-op otherwise.
func (e *Executor) publish(event events.Event) {
	if e.Events != nil {
		e.Events.Publish(event)
	}
}

// taskOutcome is the per-task result of runTaskWithRetries, used by the wave
// runner to decide whether the wave-level error flag should be set.
type taskOutcome struct {
	Task  *core.Task
	Err   error
}

// RunTask drives a single task through the state machine in spec §4.7:
// prepare (worktree) -> execute (agent) -> validate -> commit -> PR ->
// checkpoint. It does not implement the outer retry envelope; callers use
// runTaskWithRetries for that. final tells a failure path whether this is
// the outer envelope's last attempt — only the last attempt writes a
// failed checkpoint and fires onError, per spec §4.7.
func (e *Executor) RunTask(ctx context.Context, sessionID string, task *core.Task, final bool) error {
	hc := core.HookContext{Project: e.Project, Phase: task.Phase, TaskID: string(task.ID), TaskName: task.Name}

	if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookBeforeTask, hc); err != nil {
		return fmt.Errorf("beforeTask hook: %w", err)
	}

	start := time.Now()

	handle, err := e.Worktrees.Create(ctx, task.ID, core.CreateWorktreeOptions{BaseBranch: e.BaseBranch, Slug: slugify(task.Name)})
	if err != nil {
		return core.ErrWorktreeConflict(string(task.ID), err.Error())
	}
	_ = e.Store.RegisterWorktree(ctx, sessionID, task.ID, handle.Path)
	_ = e.Store.RegisterBranch(ctx, sessionID, task.ID, handle.Branch)
	e.publish(events.NewTaskStartedEvent(sessionID, e.Project, string(task.ID), handle.Path))

	prompt, err := e.PromptBuilder.Build(task)
	if err != nil {
		return fmt.Errorf("building prompt for %s: %w", task.ID, err)
	}

	execOpts := e.ExecuteOpts
	execOpts.WorkingDirectory = handle.Path

	result, err := e.Engine.Execute(ctx, prompt, execOpts)
	if err != nil && !result.Completed {
		return e.failTask(ctx, sessionID, task, hc, core.ErrAgentNonZero(string(task.ID), result.ExitCode).WithCause(err), start, final)
	}
	if !result.Completed {
		return e.failTask(ctx, sessionID, task, hc, core.ErrAgentNonZero(string(task.ID), result.ExitCode), start, final)
	}

	if !e.Fast {
		if err := Validate(ctx, task.ID, e.Validate, handle.Path); err != nil {
			return e.failTask(ctx, sessionID, task, hc, err, start, final)
		}
	}

	e.warnOnFileListMismatch(ctx, task, result)

	prLink, err := e.commitPushAndPR(ctx, task, handle)
	if err != nil {
		return e.failTask(ctx, sessionID, task, hc, err, start, final)
	}

	duration := time.Since(start)
	if err := e.Store.Checkpoint(ctx, sessionID, task.ID, core.CheckpointCompleted, prLink, duration, ""); err != nil {
		return core.ErrSessionWriteFailure(sessionID, err)
	}
	if err := e.Store.ResolveError(ctx, sessionID, task.ID); err != nil {
		e.Logger.Warn("resolveError failed", "task", task.ID, "error", err)
	}
	e.publish(events.NewTaskCompletedEvent(sessionID, e.Project, string(task.ID), duration, 0, 0, 0))

	if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookAfterTask, hc); err != nil {
		e.Logger.Warn("afterTask hook failed", "task", task.ID, "error", err)
	}
	if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookOnSuccess, hc); err != nil {
		e.Logger.Warn("onSuccess hook failed", "task", task.ID, "error", err)
	}
	return nil
}

// warnOnFileListMismatch compares the file list an agent claimed to change
// (its completion payload, when it reports one) against what the worktree
// actually shows changed, logging a warning — never failing the task — when
// they disagree in either direction: a cheap signal that the agent's
// self-report doesn't match its real footprint.
func (e *Executor) warnOnFileListMismatch(ctx context.Context, task *core.Task, result core.Result) {
	if result.Payload == nil || len(result.Payload.FilesChanged) == 0 {
		return
	}
	actual, err := e.Worktrees.ChangedFiles(ctx, task.ID)
	if err != nil {
		e.Logger.Warn("reading changed files for file-list check failed", "task", task.ID, "error", err)
		return
	}
	disc := agent.CompareFileLists(result.Payload.FilesChanged, actual)
	if disc.HasDiscrepancy() {
		e.Logger.Warn("agent-reported file list disagrees with worktree diff",
			"task", task.ID, "reported_only", disc.ReportedOnly, "actual_only", disc.ActualOnly)
	}
}

// failTask records the error ledger entry for taskErr on every attempt, but
// only writes a failed checkpoint and fires onError on the outer retry
// envelope's final attempt (spec §4.7: "on final failure, the error is
// recorded and a failed checkpoint is emitted"). A non-final failure leaves
// the session's currentTask in place; the caller (runTaskWithRetries) is
// responsible for requeuing it before the next attempt's StartTask. It
// always returns the original taskErr so callers can distinguish failure
// from success.
func (e *Executor) failTask(ctx context.Context, sessionID string, task *core.Task, hc core.HookContext, taskErr error, start time.Time, final bool) error {
	duration := time.Since(start)

	if err := e.Store.RecordError(ctx, sessionID, task.ID, taskErr.Error()); err != nil {
		e.Logger.Error("recordError failed", "task", task.ID, "error", err)
	}

	if final {
		hc.Status = "error"
		hc.Error = taskErr.Error()

		if err := e.Store.Checkpoint(ctx, sessionID, task.ID, core.CheckpointFailed, "", duration, taskErr.Error()); err != nil {
			e.Logger.Error("checkpoint(failed) write failed", "task", task.ID, "error", err)
		}
		if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookOnError, hc); err != nil {
			e.Logger.Warn("onError hook failed", "task", task.ID, "error", err)
		}
	}
	e.publish(events.NewTaskFailedEvent(sessionID, e.Project, string(task.ID), taskErr, core.IsRetryable(taskErr)))
	return taskErr
}

// runTaskWithRetries wraps RunTask with the outer retry envelope: up to
// outerRetries additional attempts on failure, removing and recreating the
// worktree (best-effort) between attempts. Between non-final attempts the
// task is requeued (currentTask cleared, pushed back onto pendingTasks) so
// the next attempt's StartTask call finds it there instead of erroring.
func (e *Executor) runTaskWithRetries(ctx context.Context, sessionID string, task *core.Task) error {
	var lastErr error
	for attempt := 0; attempt <= outerRetries; attempt++ {
		if err := e.Store.StartTask(ctx, sessionID, task.ID); err != nil {
			return core.ErrSessionWriteFailure(sessionID, err)
		}
		final := attempt == outerRetries
		lastErr = e.RunTask(ctx, sessionID, task, final)
		if lastErr == nil {
			return nil
		}
		if !final {
			if err := e.Worktrees.Remove(ctx, task.ID, true); err != nil {
				e.Logger.Warn("worktree cleanup before retry failed", "task", task.ID, "error", err)
			}
			if err := e.requeueForRetry(ctx, sessionID); err != nil {
				return core.ErrSessionWriteFailure(sessionID, err)
			}
			e.publish(events.NewTaskRetryEvent(sessionID, e.Project, string(task.ID), attempt+1, outerRetries+1, lastErr))
		}
	}
	return lastErr
}

// slugify reduces a task name to a worktree-branch-safe slug.
func slugify(name string) string {
	out := make([]rune, 0, len(name))
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			lastDash = false
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return string(out)
}
