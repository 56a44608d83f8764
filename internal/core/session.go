package core

import (
	"fmt"
	"time"
)

// TaskError tracks the error ledger for a single task across retries.
type TaskError struct {
	Iterations int    `json:"iterations"`
	LastError  string `json:"lastError"`
	Retried    bool   `json:"retried"`
	Resolved   bool   `json:"resolved"`
}

// Session is a single run instance, persisting partial progress across a
// possibly interrupted execution. The session exclusively owns its task
// sets; callers mutate a session only through the SessionStore port, never
// by touching these fields directly outside that package.
type Session struct {
	ID               string     `json:"id"`
	Project          string     `json:"project"`
	Phase            string     `json:"phase"`
	StartedAt        time.Time  `json:"startedAt"`
	LastCheckpointAt *time.Time `json:"lastCheckpointAt,omitempty"`

	CurrentTask *TaskID `json:"currentTask"`

	PendingTasks   []TaskID `json:"pendingTasks"`
	CompletedTasks []TaskID `json:"completedTasks"`
	FailedTasks    []TaskID `json:"failedTasks"`

	Worktrees map[TaskID]string `json:"worktrees"`
	Branches  map[TaskID]string `json:"branches"`
	PRs       map[TaskID]string `json:"prs"`

	Errors map[TaskID]*TaskError `json:"errors"`

	Checkpoints []Checkpoint `json:"checkpoints"`
}

// NewSession constructs a fresh session with pendingTasks set to taskIDs in
// the order given (the scheduled order, per the caller's wave plan).
func NewSession(id, project, phase string, taskIDs []TaskID) *Session {
	pending := make([]TaskID, len(taskIDs))
	copy(pending, taskIDs)
	return &Session{
		ID:             id,
		Project:        project,
		Phase:          phase,
		StartedAt:      time.Now(),
		PendingTasks:   pending,
		CompletedTasks: []TaskID{},
		FailedTasks:    []TaskID{},
		Worktrees:      map[TaskID]string{},
		Branches:       map[TaskID]string{},
		PRs:            map[TaskID]string{},
		Errors:         map[TaskID]*TaskError{},
		Checkpoints:    []Checkpoint{},
	}
}

// IsActive reports whether the session still has work outstanding: either
// pending tasks remain, or a task is currently in flight.
func (s *Session) IsActive() bool {
	return len(s.PendingTasks) > 0 || s.CurrentTask != nil
}

// StartTask moves taskID out of pendingTasks and sets it as the current
// task. Returns an error if taskID is not in pendingTasks, or another task
// is already current.
func (s *Session) StartTask(taskID TaskID) error {
	if s.CurrentTask != nil {
		return &DomainError{
			Category: ErrCatState,
			Code:     CodeInvalidState,
			Message:  fmt.Sprintf("cannot start %s: task %s is already current", taskID, *s.CurrentTask),
		}
	}
	idx := indexOf(s.PendingTasks, taskID)
	if idx < 0 {
		return &DomainError{
			Category: ErrCatState,
			Code:     CodeInvalidState,
			Message:  fmt.Sprintf("cannot start %s: not in pendingTasks", taskID),
		}
	}
	s.PendingTasks = removeAt(s.PendingTasks, idx)
	t := taskID
	s.CurrentTask = &t
	return nil
}

// Checkpoint appends a checkpoint, clears currentTask, adds taskID to the
// matching completed/failed set, and updates lastCheckpointAt. Timestamps
// are required to be monotonic non-decreasing across the session's
// checkpoint sequence; callers (the store) are responsible for supplying a
// non-decreasing ts.
func (s *Session) Checkpoint(taskID TaskID, status CheckpointStatus, ts time.Time, prLink string, durationMS int64, errMsg string) {
	cp := Checkpoint{
		SessionID:  s.ID,
		Timestamp:  ts,
		TaskID:     taskID,
		Status:     status,
		PRLink:     prLink,
		DurationMS: durationMS,
		Error:      errMsg,
	}
	s.Checkpoints = append(s.Checkpoints, cp)
	if s.CurrentTask != nil && *s.CurrentTask == taskID {
		s.CurrentTask = nil
	}
	switch status {
	case CheckpointCompleted:
		s.CompletedTasks = appendUnique(s.CompletedTasks, taskID)
	case CheckpointFailed:
		s.FailedTasks = appendUnique(s.FailedTasks, taskID)
	}
	s.LastCheckpointAt = &ts
}

// RecordError initialises or increments the error ledger entry for taskID.
func (s *Session) RecordError(taskID TaskID, msg string) {
	if s.Errors == nil {
		s.Errors = map[TaskID]*TaskError{}
	}
	e, ok := s.Errors[taskID]
	if !ok {
		e = &TaskError{}
		s.Errors[taskID] = e
	}
	e.Iterations++
	e.LastError = msg
	e.Retried = e.Iterations > 1
	e.Resolved = false
}

// ResolveError marks the taskID's error ledger entry resolved without
// touching its iteration count.
func (s *Session) ResolveError(taskID TaskID) {
	if e, ok := s.Errors[taskID]; ok {
		e.Resolved = true
	}
}

// RegisterWorktree, RegisterBranch, RegisterPR record side-effect
// identifiers against taskID. These are back-references for cleanup and
// resume, never an ownership claim per the session ownership model.
func (s *Session) RegisterWorktree(taskID TaskID, path string) {
	if s.Worktrees == nil {
		s.Worktrees = map[TaskID]string{}
	}
	s.Worktrees[taskID] = path
}

func (s *Session) RegisterBranch(taskID TaskID, branch string) {
	if s.Branches == nil {
		s.Branches = map[TaskID]string{}
	}
	s.Branches[taskID] = branch
}

func (s *Session) RegisterPR(taskID TaskID, url string) {
	if s.PRs == nil {
		s.PRs = map[TaskID]string{}
	}
	s.PRs[taskID] = url
}

// PrependCurrentToPending implements the crash-resume recovery rule: if a
// task was in flight when the process died, it goes back to the front of
// pendingTasks and currentTask is cleared.
func (s *Session) PrependCurrentToPending() {
	if s.CurrentTask == nil {
		return
	}
	s.PendingTasks = append([]TaskID{*s.CurrentTask}, s.PendingTasks...)
	s.CurrentTask = nil
}

// ValidatePartition checks the four-set partition invariant: every id in
// originalTasks appears in exactly one of {pending, currentTask, completed,
// failed}.
func (s *Session) ValidatePartition(originalTasks []TaskID) error {
	seen := map[TaskID]int{}
	for _, id := range s.PendingTasks {
		seen[id]++
	}
	for _, id := range s.CompletedTasks {
		seen[id]++
	}
	for _, id := range s.FailedTasks {
		seen[id]++
	}
	if s.CurrentTask != nil {
		seen[*s.CurrentTask]++
	}
	for _, id := range originalTasks {
		if seen[id] != 1 {
			return &DomainError{
				Category: ErrCatState,
				Code:     CodeStateCorrupted,
				Message:  fmt.Sprintf("task %s appears in %d of {pending,current,completed,failed}, want exactly 1", id, seen[id]),
			}
		}
	}
	return nil
}

func indexOf(list []TaskID, id TaskID) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(list []TaskID, idx int) []TaskID {
	out := make([]TaskID, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out
}

func appendUnique(list []TaskID, id TaskID) []TaskID {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
