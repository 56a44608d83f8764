package core

import "time"

// CheckpointStatus is the terminal outcome a checkpoint records for a task.
type CheckpointStatus string

const (
	CheckpointCompleted CheckpointStatus = "completed"
	CheckpointFailed    CheckpointStatus = "failed"
)

// Checkpoint is a durable record of a task's terminal outcome within a
// session. Checkpoints are append-only and form a monotonic non-decreasing
// timestamp sequence per session; a task id may appear multiple times
// across retries but at most once with status completed.
type Checkpoint struct {
	ID         int64            `json:"id,omitempty"`
	SessionID  string           `json:"sessionId"`
	Timestamp  time.Time        `json:"timestamp"`
	TaskID     TaskID           `json:"taskId"`
	Status     CheckpointStatus `json:"status"`
	PRLink     string           `json:"prLink,omitempty"`
	DurationMS int64            `json:"durationMs,omitempty"`
	Error      string           `json:"error,omitempty"`
}
