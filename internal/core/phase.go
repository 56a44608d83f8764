package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// phaseInputPattern validates user-supplied phase references: P<PP>, case
// insensitive. Canonical form is lowercase "p<PP>".
var phaseInputPattern = regexp.MustCompile(`^[Pp]\d{2}$`)

// phaseDirPattern validates on-disk phase directory names: P<PP>-<slug>.
var phaseDirPattern = regexp.MustCompile(`^[Pp](\d{2})-([a-zA-Z0-9][a-zA-Z0-9_-]*)$`)

// ValidPhaseInput reports whether s matches ^[Pp]\d{2}$.
func ValidPhaseInput(s string) bool {
	return phaseInputPattern.MatchString(s)
}

// CanonicalPhase lowercases and validates a user-supplied phase reference,
// returning e.g. "p03" for "P3"-shaped input. Two-digit zero padding is
// required by the pattern itself.
func CanonicalPhase(s string) (string, error) {
	if !ValidPhaseInput(s) {
		return "", fmt.Errorf("phase %q does not match ^[Pp]\\d{2}$", s)
	}
	return strings.ToLower(s), nil
}

// PhaseNumber extracts the two-digit numeric component from a canonical or
// raw phase reference ("p03" or "P03" -> "03").
func PhaseNumber(s string) string {
	if len(s) < 3 {
		return ""
	}
	return s[1:3]
}

// ParsePhaseDir parses an on-disk phase directory name of the form
// P<PP>-<slug>, returning the two-digit number and slug.
func ParsePhaseDir(name string) (number, slug string, ok bool) {
	m := phaseDirPattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// PhaseStatus is the roll-up status of an entire phase, distinct from any
// single task's status.
type PhaseStatus string

const (
	PhaseStatusPlanning   PhaseStatus = "planning"
	PhaseStatusSynced     PhaseStatus = "synced"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
	PhaseStatusBlocked    PhaseStatus = "blocked"
)

// SubtaskCount is the {total, completed} roll-up attached to a task entry
// in phase metadata.
type SubtaskCount struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// PhaseTaskEntry is one entry of the phase metadata's task list: the
// authoritative overlay values for dependencies, estimate, priority, and
// status, which take precedence over whatever the per-task descriptor says.
type PhaseTaskEntry struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Title        string        `json:"title,omitempty"`
	Estimate     float64       `json:"estimate,omitempty"`
	Priority     string        `json:"priority,omitempty"`
	Status       string        `json:"status,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Subtasks     *SubtaskCount `json:"subtasks,omitempty"`
}

// PhaseMetadata is the authoritative, JSON-shaped metadata file maintained
// by planning tools for a phase directory. Per spec, any field present in
// both the per-task descriptor and phase metadata is resolved in favor of
// phase metadata.
type PhaseMetadata struct {
	Phase       string           `json:"phase"`
	PhaseNumber int              `json:"phaseNumber"`
	PhaseName   string           `json:"phaseName"`
	Tasks       []PhaseTaskEntry `json:"tasks"`
	Stats       map[string]any   `json:"stats,omitempty"`
	Coverage    map[string]any   `json:"coverage,omitempty"`
	Artifacts   []string         `json:"artifacts,omitempty"`
	Generated   string           `json:"generated,omitempty"`
	LastSynced  string           `json:"lastSynced,omitempty"`
	Status      PhaseStatus      `json:"status,omitempty"`
}

// Validate checks the minimal required fields of phase metadata.
func (m *PhaseMetadata) Validate() error {
	if m.PhaseNumber < 0 {
		return &DomainError{
			Category: ErrCatValidation,
			Code:     CodeMetadataParse,
			Message:  fmt.Sprintf("phaseNumber must be >= 0, got %d", m.PhaseNumber),
		}
	}
	if strings.TrimSpace(m.PhaseName) == "" {
		return &DomainError{
			Category: ErrCatValidation,
			Code:     CodeMetadataParse,
			Message:  "phaseName must not be empty",
		}
	}
	return nil
}

// EntryByID returns the task entry with the given id, if present.
func (m *PhaseMetadata) EntryByID(id string) (PhaseTaskEntry, bool) {
	for _, e := range m.Tasks {
		if e.ID == id {
			return e, true
		}
	}
	return PhaseTaskEntry{}, false
}

// FormatPhaseNumber zero-pads an int phase number to two digits.
func FormatPhaseNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}

// ParsePhaseNumber parses a two-digit phase number string to int.
func ParsePhaseNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid phase number %q: %w", s, err)
	}
	return n, nil
}
