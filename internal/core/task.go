package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TaskID uniquely identifies a task within a phase, e.g. "T03-002".
type TaskID string

// taskIDPattern is the authoritative task id shape: phase ordinal + task ordinal.
var taskIDPattern = regexp.MustCompile(`^T\d{2}-\d{3}$`)

// ValidTaskID reports whether id matches the required T<PP>-<NNN> shape.
func ValidTaskID(id string) bool {
	return taskIDPattern.MatchString(id)
}

// PhaseOf extracts the two-digit phase component from a task id, e.g.
// "T03-002" -> "03". Returns "" if id is not a valid task id.
func (id TaskID) PhaseOf() string {
	s := string(id)
	if !ValidTaskID(s) {
		return ""
	}
	return s[1:3]
}

// TaskStatus represents the current state of a task, per the Task lifecycle.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// ValidTaskStatus reports whether s is one of the five defined statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked:
		return true
	}
	return false
}

// Priority is the task urgency band, P0 (highest) through P3 (lowest).
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// priorityRank orders priorities for tie-breaking in topological sort;
// lower rank sorts first.
var priorityRank = map[Priority]int{
	PriorityP0: 0,
	PriorityP1: 1,
	PriorityP2: 2,
	PriorityP3: 3,
	"":         4,
}

// Rank returns the sort order of p; unknown/empty priorities sort last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return 4
}

// Task is a unit of work loaded from an on-disk task descriptor and
// (when present) overlaid with authoritative phase metadata.
//
// Tasks are immutable once loaded for a run; execution state lives in the
// owning Session, never on the Task itself.
type Task struct {
	ID          TaskID
	Name        string
	Description string

	Status        TaskStatus
	ParallelGroup int
	Dependencies  []TaskID

	Files              []string
	AcceptanceCriteria []string

	EstimateHours float64
	Priority      Priority
	Phase         string

	Requirements        []string
	BusinessRules       []string
	TestingRequirements []string
	Skills              []string
}

// ParseEstimate normalises a duration string of the form "<n>h" or "<n>d"
// (1d = 8h) into hours. An empty string yields 0 with no error.
func ParseEstimate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	switch unit {
	case 'h', 'H':
		n, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hour estimate %q: %w", s, err)
		}
		return n, nil
	case 'd', 'D':
		n, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day estimate %q: %w", s, err)
		}
		return n * 8, nil
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid estimate %q: want \"<n>h\" or \"<n>d\"", s)
		}
		return n, nil
	}
}

// FormatEstimate renders hours back into the "<n>h" form phase metadata uses.
func FormatEstimate(hours float64) string {
	if hours == float64(int64(hours)) {
		return fmt.Sprintf("%dh", int64(hours))
	}
	return fmt.Sprintf("%gh", hours)
}

// MapMetadataStatus maps a phase-metadata status token onto a TaskStatus,
// per the loader overlay rule in the task loader contract.
func MapMetadataStatus(raw string) (TaskStatus, bool) {
	switch raw {
	case "not_started", "":
		return TaskStatusPending, true
	case "in_progress":
		return TaskStatusInProgress, true
	case "completed":
		return TaskStatusCompleted, true
	case "failed":
		return TaskStatusFailed, true
	case "blocked":
		return TaskStatusBlocked, true
	default:
		return "", false
	}
}

// Validate checks the task's own invariants (not cross-task DAG invariants,
// which are the scheduler's responsibility).
func (t *Task) Validate() error {
	if !ValidTaskID(string(t.ID)) {
		return &DomainError{
			Category: ErrCatValidation,
			Code:     CodeTaskIDInvalid,
			Message:  fmt.Sprintf("task id %q does not match ^T\\d{2}-\\d{3}$", t.ID),
		}
	}
	if t.Name == "" {
		return &DomainError{
			Category: ErrCatValidation,
			Code:     CodeTaskNameRequired,
			Message:  fmt.Sprintf("task %s: name cannot be empty", t.ID),
		}
	}
	if t.Status != "" && !ValidTaskStatus(t.Status) {
		return &DomainError{
			Category: ErrCatValidation,
			Code:     CodeTaskStatusInvalid,
			Message:  fmt.Sprintf("task %s: invalid status %q", t.ID, t.Status),
		}
	}
	if t.ParallelGroup < 0 {
		return &DomainError{
			Category: ErrCatValidation,
			Code:     CodeTaskStatusInvalid,
			Message:  fmt.Sprintf("task %s: parallelGroup must be >= 1, got %d", t.ID, t.ParallelGroup),
		}
	}
	return nil
}

// DependsOn reports whether t declares dep as a direct dependency.
func (t *Task) DependsOn(dep TaskID) bool {
	for _, d := range t.Dependencies {
		if d == dep {
			return true
		}
	}
	return false
}
