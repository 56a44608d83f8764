package task

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/logging"
)

var taskDirPattern = regexp.MustCompile(`^T(\d{2})-(\d{3})-(.+)$`)

// Loader walks <specsRoot>/P<PP>-<slug>/ phase directories and resolves
// task descriptors plus phase metadata into typed core.Task records, per
// the Task Loader contract.
type Loader struct {
	specsRoot string
	logger    *logging.Logger
}

// New constructs a Loader rooted at specsRoot.
func New(specsRoot string, logger *logging.Logger) *Loader {
	return &Loader{specsRoot: specsRoot, logger: logger}
}

// findPhaseDir locates the phase directory under specsRoot matching
// P<PP>-* where PP is the two-digit component of phase (already
// canonicalised, e.g. "p03"). Returns "" if not found.
func (l *Loader) findPhaseDir(phaseNumber string) (string, error) {
	entries, err := os.ReadDir(l.specsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		num, _, ok := core.ParsePhaseDir(e.Name())
		if ok && num == phaseNumber {
			return filepath.Join(l.specsRoot, e.Name()), nil
		}
	}
	return "", nil
}

// LoadTasks implements loadTasks(cwd, phase): produce the task list for a
// phase, ordered by ascending id. phase must match ^[Pp]\d{2}$.
func (l *Loader) LoadTasks(phase string) ([]*core.Task, error) {
	canon, err := core.CanonicalPhase(phase)
	if err != nil {
		return nil, err
	}
	phaseNumber := core.PhaseNumber(canon)

	phaseDir, err := l.findPhaseDir(phaseNumber)
	if err != nil {
		return nil, err
	}
	if phaseDir == "" {
		return []*core.Task{}, nil
	}

	var metadata *core.PhaseMetadata
	if mp := findMetadataFile(phaseDir); mp != "" {
		m, err := loadPhaseMetadata(mp, canon)
		if err != nil {
			if l.logger != nil {
				l.logger.Warn("phase metadata malformed, loading tasks without overlay", "phase", canon, "error", err)
			}
		} else {
			metadata = m
		}
	}

	entries, err := os.ReadDir(phaseDir)
	if err != nil {
		return nil, err
	}

	tasks := make([]*core.Task, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := taskDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id := fmt.Sprintf("T%s-%s", m[1], m[2])
		slug := m[3]
		taskDir := filepath.Join(phaseDir, e.Name())

		t := l.loadOneTask(id, slug, taskDir)
		if metadata != nil {
			if entry, ok := metadata.EntryByID(id); ok {
				overlayMetadata(t, entry)
			}
		}
		if t.Status == "" {
			t.Status = core.TaskStatusPending
		}
		if t.Phase == "" {
			t.Phase = canon
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// loadOneTask resolves a single task directory's descriptor, degrading to
// a minimal record on any parse failure per the loader's recoverable-error
// contract.
func (l *Loader) loadOneTask(id, slug, taskDir string) *core.Task {
	descPath := findDescriptorFile(taskDir)
	if descPath == "" {
		return minimalTask(id, slug)
	}
	fields, err := parseDescriptor(descPath)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("task descriptor malformed, degrading to minimal record",
				"task_id", id, "path", descPath, "error", err)
		}
		return minimalTask(id, slug)
	}
	t := buildFromDescriptor(id, fields)
	if t.Name == "" {
		t = minimalTask(id, slug)
	}
	return t
}

// LoadTask implements loadTask(cwd, taskId): single-task lookup. It scans
// all phase directories for one whose phase number matches the task id's
// phase component, then loads just that task (with metadata overlay).
func (l *Loader) LoadTask(taskID string) (*core.Task, bool, error) {
	if !core.ValidTaskID(taskID) {
		return nil, false, fmt.Errorf("invalid task id %q: want ^T\\d{2}-\\d{3}$", taskID)
	}
	phaseNumber := core.TaskID(taskID).PhaseOf()

	phaseDir, err := l.findPhaseDir(phaseNumber)
	if err != nil {
		return nil, false, err
	}
	if phaseDir == "" {
		return nil, false, nil
	}

	entries, err := os.ReadDir(phaseDir)
	if err != nil {
		return nil, false, err
	}

	var metadata *core.PhaseMetadata
	canon := "p" + phaseNumber
	if mp := findMetadataFile(phaseDir); mp != "" {
		if m, err := loadPhaseMetadata(mp, canon); err == nil {
			metadata = m
		} else if l.logger != nil {
			l.logger.Warn("phase metadata malformed, loading task without overlay", "phase", canon, "error", err)
		}
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := taskDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id := fmt.Sprintf("T%s-%s", m[1], m[2])
		if id != taskID {
			continue
		}
		taskDir := filepath.Join(phaseDir, e.Name())
		t := l.loadOneTask(id, m[3], taskDir)
		if metadata != nil {
			if entry, ok := metadata.EntryByID(id); ok {
				overlayMetadata(t, entry)
			}
		}
		if t.Status == "" {
			t.Status = core.TaskStatusPending
		}
		if t.Phase == "" {
			t.Phase = canon
		}
		return t, true, nil
	}
	return nil, false, nil
}
