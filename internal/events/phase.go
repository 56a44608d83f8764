package events

import "time"

// Event type constants for phase events.
const (
	TypePhaseStarted        = "phase_started"
	TypePhaseCompleted      = "phase_completed"
	TypePhaseAwaitingReview = "phase_awaiting_review"
	TypePhaseReviewApproved = "phase_review_approved"
	TypePhaseReviewRejected = "phase_review_rejected"
)

// PhaseStartedEvent is emitted when a phase begins.
type PhaseStartedEvent struct {
	BaseEvent
	Phase string `json:"phase"`
}

// NewPhaseStartedEvent creates a new phase started event.
func NewPhaseStartedEvent(sessionID, projectID, phase string) PhaseStartedEvent {
	return PhaseStartedEvent{
		BaseEvent: NewBaseEvent(TypePhaseStarted, sessionID, projectID),
		Phase:     phase,
	}
}

// PhaseCompletedEvent is emitted when a phase finishes.
type PhaseCompletedEvent struct {
	BaseEvent
	Phase    string        `json:"phase"`
	Duration time.Duration `json:"duration"`
}

// NewPhaseCompletedEvent creates a new phase completed event.
func NewPhaseCompletedEvent(sessionID, projectID, phase string, duration time.Duration) PhaseCompletedEvent {
	return PhaseCompletedEvent{
		BaseEvent: NewBaseEvent(TypePhaseCompleted, sessionID, projectID),
		Phase:     phase,
		Duration:  duration,
	}
}

// PhaseAwaitingReviewEvent is emitted when an interactive workflow pauses for user review.
type PhaseAwaitingReviewEvent struct {
	BaseEvent
	Phase string `json:"phase"`
}

// NewPhaseAwaitingReviewEvent creates a new phase awaiting review event.
func NewPhaseAwaitingReviewEvent(sessionID, projectID, phase string) PhaseAwaitingReviewEvent {
	return PhaseAwaitingReviewEvent{
		BaseEvent: NewBaseEvent(TypePhaseAwaitingReview, sessionID, projectID),
		Phase:     phase,
	}
}

// PhaseReviewApprovedEvent is emitted when the user approves a phase review.
type PhaseReviewApprovedEvent struct {
	BaseEvent
	Phase string `json:"phase"`
}

// NewPhaseReviewApprovedEvent creates a new phase review approved event.
func NewPhaseReviewApprovedEvent(sessionID, projectID, phase string) PhaseReviewApprovedEvent {
	return PhaseReviewApprovedEvent{
		BaseEvent: NewBaseEvent(TypePhaseReviewApproved, sessionID, projectID),
		Phase:     phase,
	}
}

// PhaseReviewRejectedEvent is emitted when the user rejects a phase review.
type PhaseReviewRejectedEvent struct {
	BaseEvent
	Phase    string `json:"phase"`
	Feedback string `json:"feedback,omitempty"`
}

// NewPhaseReviewRejectedEvent creates a new phase review rejected event.
func NewPhaseReviewRejectedEvent(sessionID, projectID, phase, feedback string) PhaseReviewRejectedEvent {
	return PhaseReviewRejectedEvent{
		BaseEvent: NewBaseEvent(TypePhaseReviewRejected, sessionID, projectID),
		Phase:     phase,
		Feedback:  feedback,
	}
}
