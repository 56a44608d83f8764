package core

import (
	"context"
	"time"
)

// ExecuteOptions configures a single agent invocation.
type ExecuteOptions struct {
	Timeout                    time.Duration
	MaxRetries                 int
	WorkingDirectory           string
	DangerouslySkipPermissions bool
	Model                      string
	CompletionToken            string // override of the default <promise>COMPLETE</promise>
}

// DefaultExecuteOptions returns the spec's default timeout/retry envelope.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{
		Timeout:         600 * time.Second,
		MaxRetries:      2,
		CompletionToken: "<promise>COMPLETE</promise>",
	}
}

// CompletionPayload is the optional JSON metadata carried by the
// "<promise>COMPLETE:{json}</promise>" token variant.
type CompletionPayload struct {
	Summary      string   `json:"summary,omitempty"`
	FilesChanged []string `json:"filesChanged,omitempty"`
	TestsRun     int      `json:"testsRun,omitempty"`
	TestsPassed  int      `json:"testsPassed,omitempty"`
}

// Result is the outcome of one Engine.Execute call.
type Result struct {
	Success    bool
	Output     string
	ExitCode   int
	DurationMS int64
	Completed  bool
	Error      string
	Payload    *CompletionPayload
}

// Engine is the polymorphic agent-execution port the core consumes. Each
// variant is registered by name at startup; the core never uses
// reflection to discover variants.
type Engine interface {
	Name() string
	Execute(ctx context.Context, prompt string, opts ExecuteOptions) (Result, error)
	CheckCompletion(output string) bool
}

// WorktreeHandle is the scoped acquisition result for a task: an isolated
// working copy plus the branch it's checked out on.
type WorktreeHandle struct {
	Path   string
	Branch string
}

// CreateWorktreeOptions parameterises WorktreeManager.Create.
type CreateWorktreeOptions struct {
	BaseBranch string
	Slug       string
}

// WorktreeManager is the abstract capability the core requires per task;
// see spec §4.3. The canonical path is a pure function of
// (baseDir, project, taskID): two calls with the same inputs return the
// same path, which is what makes resume path-free.
type WorktreeManager interface {
	Create(ctx context.Context, taskID TaskID, opts CreateWorktreeOptions) (WorktreeHandle, error)
	Remove(ctx context.Context, taskID TaskID, force bool) error
	Commit(ctx context.Context, taskID TaskID, message string, addAll bool) (commitID string, err error)
	Push(ctx context.Context, taskID TaskID, setUpstream bool, remote string) error
	HasUncommittedChanges(ctx context.Context, taskID TaskID) (bool, error)
	ChangedFiles(ctx context.Context, taskID TaskID) ([]string, error)
	Diff(ctx context.Context, taskID TaskID, staged bool) (string, error)
	// CanonicalPath returns the deterministic worktree path for taskID
	// without requiring the worktree to exist.
	CanonicalPath(taskID TaskID) string
}

// ErrNothingToCommit is returned by WorktreeManager.Commit when the
// worktree has no staged or unstaged changes.
var ErrNothingToCommit = ErrState("NOTHING_TO_COMMIT", "worktree has no changes to commit")

// PullRequestCreator is the fire-and-forget PR side effect port; failures
// are warnings only per spec §4.7.
type PullRequestCreator interface {
	CreatePullRequest(ctx context.Context, taskID TaskID, branch, title, body string) (url string, err error)
}

// SessionStore is the durable, crash-safe, single-writer session
// persistence port; see spec §4.5.
type SessionStore interface {
	Create(ctx context.Context, project, phase string, taskIDs []TaskID) (*Session, error)
	GetActive(ctx context.Context, project string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	ListAll(ctx context.Context, project string) ([]*Session, error)
	StartTask(ctx context.Context, sessionID string, taskID TaskID) error
	Checkpoint(ctx context.Context, sessionID string, taskID TaskID, status CheckpointStatus, prLink string, duration time.Duration, errMsg string) error
	RecordError(ctx context.Context, sessionID string, taskID TaskID, msg string) error
	ResolveError(ctx context.Context, sessionID string, taskID TaskID) error
	RegisterWorktree(ctx context.Context, sessionID string, taskID TaskID, path string) error
	RegisterBranch(ctx context.Context, sessionID string, taskID TaskID, branch string) error
	RegisterPR(ctx context.Context, sessionID string, taskID TaskID, url string) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// HookName enumerates the hook runner's lifecycle points.
type HookName string

const (
	HookBeforePhase HookName = "beforePhase"
	HookBeforeTask  HookName = "beforeTask"
	HookAfterTask   HookName = "afterTask"
	HookOnSuccess   HookName = "onSuccess"
	HookOnError     HookName = "onError"
)

// Fatal reports whether a failure of this hook must abort the current step
// (beforePhase/beforeTask) versus being a warning only (everything else).
func (h HookName) Fatal() bool {
	return h == HookBeforePhase || h == HookBeforeTask
}

// HookContext is the set of environment variables injected into a hook's
// shell environment.
type HookContext struct {
	Project  string
	Phase    string
	TaskID   string
	TaskName string
	Status   string // "success" | "error" | ""
	Error    string
}

// HookResult is the outcome of a single hook invocation.
type HookResult struct {
	Success bool
	Output  string
}

// HookRunner fires lifecycle hooks as shell commands with injected
// context env vars; see spec §4.6.
type HookRunner interface {
	Run(ctx context.Context, name HookName, command string, hc HookContext) (HookResult, error)
}
