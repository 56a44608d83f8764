package events

import "time"

// Event type constants for session events.
const (
	TypeSessionStarted      = "session_started"
	TypeSessionStateUpdated = "session_state_updated"
	TypeSessionCompleted    = "session_completed"
	TypeSessionFailed       = "session_failed"
	TypeSessionPaused       = "session_paused"
	TypeSessionResumed      = "session_resumed"
)

// SessionStartedEvent is emitted when a session begins.
type SessionStartedEvent struct {
	BaseEvent
	Prompt string `json:"prompt"`
}

// NewSessionStartedEvent creates a new session started event.
func NewSessionStartedEvent(sessionID, projectID, prompt string) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent: NewBaseEvent(TypeSessionStarted, sessionID, projectID),
		Prompt:    prompt,
	}
}

// SessionStateUpdatedEvent is emitted whenever a session's task partition changes.
type SessionStateUpdatedEvent struct {
	BaseEvent
	Phase      string `json:"phase"`
	TotalTasks int    `json:"total_tasks"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Pending    int    `json:"pending"`
}

// NewSessionStateUpdatedEvent creates a new state updated event.
func NewSessionStateUpdatedEvent(sessionID, projectID, phase string, total, completed, failed, pending int) SessionStateUpdatedEvent {
	return SessionStateUpdatedEvent{
		BaseEvent:  NewBaseEvent(TypeSessionStateUpdated, sessionID, projectID),
		Phase:      phase,
		TotalTasks: total,
		Completed:  completed,
		Failed:     failed,
		Pending:    pending,
	}
}

// SessionCompletedEvent is emitted once, when a session finishes with no
// unresolved failed tasks.
type SessionCompletedEvent struct {
	BaseEvent
	Duration time.Duration `json:"duration"`
}

// NewSessionCompletedEvent creates a new session completed event.
func NewSessionCompletedEvent(sessionID, projectID string, duration time.Duration) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent: NewBaseEvent(TypeSessionCompleted, sessionID, projectID),
		Duration:  duration,
	}
}

// SessionFailedEvent is emitted when a session exhausts retries on a task
// and that task remains unresolved.
type SessionFailedEvent struct {
	BaseEvent
	Phase string `json:"phase"`
	Error string `json:"error"`
}

// NewSessionFailedEvent creates a new session failed event.
func NewSessionFailedEvent(sessionID, projectID, phase string, err error) SessionFailedEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return SessionFailedEvent{
		BaseEvent: NewBaseEvent(TypeSessionFailed, sessionID, projectID),
		Phase:     phase,
		Error:     errStr,
	}
}

// SessionPausedEvent is emitted when a session is paused between waves.
type SessionPausedEvent struct {
	BaseEvent
	Phase  string `json:"phase"`
	Reason string `json:"reason"`
}

// NewSessionPausedEvent creates a new session paused event.
func NewSessionPausedEvent(sessionID, projectID, phase, reason string) SessionPausedEvent {
	return SessionPausedEvent{
		BaseEvent: NewBaseEvent(TypeSessionPaused, sessionID, projectID),
		Phase:     phase,
		Reason:    reason,
	}
}

// SessionResumedEvent is emitted when a session resumes after a crash or pause.
type SessionResumedEvent struct {
	BaseEvent
	FromPhase string `json:"from_phase"`
}

// NewSessionResumedEvent creates a new session resumed event.
func NewSessionResumedEvent(sessionID, projectID, fromPhase string) SessionResumedEvent {
	return SessionResumedEvent{
		BaseEvent: NewBaseEvent(TypeSessionResumed, sessionID, projectID),
		FromPhase: fromPhase,
	}
}
