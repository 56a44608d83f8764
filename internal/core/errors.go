package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatState      ErrorCategory = "state"      // State corruption/conflict
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent modification
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
	ErrCatSchedule   ErrorCategory = "schedule"   // DAG/scheduler error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrUnknownDependency reports a task dependency that names a task id
// absent from the loaded set. Fatal: the run cannot be scheduled.
func ErrUnknownDependency(taskID, dep string) *DomainError {
	return &DomainError{
		Category:  ErrCatSchedule,
		Code:      CodeUnknownDependency,
		Message:   fmt.Sprintf("task %s depends on unknown task %s", taskID, dep),
		Retryable: false,
		Details:   map[string]interface{}{"task_id": taskID, "dependency": dep},
	}
}

// ErrCircularDependency reports a dependency cycle, naming the cycle path.
func ErrCircularDependency(path []string) *DomainError {
	return &DomainError{
		Category:  ErrCatSchedule,
		Code:      CodeCircularDependency,
		Message:   fmt.Sprintf("circular dependency: %s", joinPath(path)),
		Retryable: false,
		Details:   map[string]interface{}{"path": path},
	}
}

// ErrUnschedulableTasks reports tasks that could not be placed into any
// wave because no remaining task became eligible in a sweep.
func ErrUnschedulableTasks(remaining []string) *DomainError {
	return &DomainError{
		Category:  ErrCatSchedule,
		Code:      CodeUnschedulableTasks,
		Message:   fmt.Sprintf("unschedulable tasks (cross-group dependency conflict): %s", joinPath(remaining)),
		Retryable: false,
		Details:   map[string]interface{}{"remaining": remaining},
	}
}

// ErrTaskFileParse reports a malformed task descriptor file. Recoverable:
// the loader degrades to a minimal record instead of failing the load.
func ErrTaskFileParse(taskID string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeTaskFileParse,
		Message:   fmt.Sprintf("task %s: malformed descriptor", taskID),
		Retryable: false,
		Cause:     cause,
	}
}

// ErrMetadataParse reports a malformed phase metadata file. Recoverable:
// the loader skips the overlay for tasks in that phase.
func ErrMetadataParse(phase string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeMetadataParse,
		Message:   fmt.Sprintf("phase %s: malformed metadata", phase),
		Retryable: false,
		Cause:     cause,
	}
}

// ErrWorktreeConflict reports that a worktree operation could not proceed
// because of a conflicting on-disk state. Retryable after cleanup.
func ErrWorktreeConflict(taskID, detail string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeWorktreeConflict,
		Message:   fmt.Sprintf("task %s: worktree conflict: %s", taskID, detail),
		Retryable: true,
	}
}

// ErrAgentTimeout reports that an agent subprocess exceeded its timeout.
func ErrAgentTimeout(taskID string, timeoutMS int) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeAgentTimeout,
		Message:   fmt.Sprintf("task %s: agent timed out after %dms", taskID, timeoutMS),
		Retryable: true,
		Details:   map[string]interface{}{"timeout_ms": timeoutMS},
	}
}

// ErrAgentNonZero reports a non-zero agent exit without a completion token.
func ErrAgentNonZero(taskID string, exitCode int) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeAgentNonZero,
		Message:   fmt.Sprintf("task %s: agent exited %d without completion token", taskID, exitCode),
		Retryable: true,
		Details:   map[string]interface{}{"exit_code": exitCode},
	}
}

// ErrValidationFailure reports a non-zero lint/test command in the worktree.
func ErrValidationFailure(taskID, step string, exitCode int) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeValidationFailure,
		Message:   fmt.Sprintf("task %s: %s failed with exit code %d", taskID, step, exitCode),
		Retryable: true,
		Details:   map[string]interface{}{"step": step, "exit_code": exitCode},
	}
}

// ErrCommitPushFailure reports a failed commit or push operation.
func ErrCommitPushFailure(taskID string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeCommitPushFailure,
		Message:   fmt.Sprintf("task %s: commit/push failed", taskID),
		Retryable: true,
		Cause:     cause,
	}
}

// ErrPRCreateFailure reports a failed PR-creation side effect. Per spec
// this is a warning only and never fails the task.
func ErrPRCreateFailure(taskID string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodePRCreateFailure,
		Message:   fmt.Sprintf("task %s: pull request creation failed", taskID),
		Retryable: false,
		Cause:     cause,
	}
}

// ErrHookFailure reports a failed lifecycle hook. Fatal for pre-phase and
// pre-task hooks, warning-only for the rest; the orchestrate package
// applies that policy using the hook name, not this constructor.
func ErrHookFailure(hookName string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeHookFailure,
		Message:   fmt.Sprintf("hook %s failed", hookName),
		Retryable: false,
		Cause:     cause,
	}
}

// ErrSessionWriteFailure reports a failed durable write to the session
// store. Fatal for the run: recovery cannot be guaranteed past this point.
func ErrSessionWriteFailure(sessionID string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeSessionWriteFailure,
		Message:   fmt.Sprintf("session %s: durable write failed", sessionID),
		Retryable: false,
		Cause:     cause,
	}
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeTaskNotFound   = "TASK_NOT_FOUND"
	CodeInvalidState   = "INVALID_STATE"
	CodeStateCorrupted = "STATE_CORRUPTED"
	CodeChecksFailed   = "CHECKS_FAILED"

	// Task/phase validation codes
	CodeTaskIDInvalid     = "TASK_ID_INVALID"
	CodeTaskNameRequired  = "TASK_NAME_REQUIRED"
	CodeTaskStatusInvalid = "TASK_STATUS_INVALID"

	// Scheduler error codes (§7 error taxonomy)
	CodeUnknownDependency  = "UNKNOWN_DEPENDENCY"
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"
	CodeUnschedulableTasks = "UNSCHEDULABLE_TASKS"

	// Loader error codes
	CodeTaskFileParse = "TASK_FILE_PARSE"
	CodeMetadataParse = "METADATA_PARSE"

	// Worktree/agent/executor/hook/store error codes
	CodeWorktreeConflict    = "WORKTREE_CONFLICT"
	CodeAgentTimeout        = "AGENT_TIMEOUT"
	CodeAgentNonZero        = "AGENT_NON_ZERO"
	CodeValidationFailure   = "VALIDATION_FAILURE"
	CodeCommitPushFailure   = "COMMIT_PUSH_FAILURE"
	CodePRCreateFailure     = "PR_CREATE_FAILURE"
	CodeHookFailure         = "HOOK_FAILURE"
	CodeSessionWriteFailure = "SESSION_WRITE_FAILURE"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
)
