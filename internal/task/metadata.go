package task

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/atrium-run/atrium/internal/core"
)

// metadataFileNames are the candidate authoritative phase metadata files
// looked for inside a phase directory, in order of preference.
var metadataFileNames = []string{"phase.json", "metadata.json", "tasks.json"}

// findMetadataFile returns the first matching metadata file path inside
// dir, or "" if none exists.
func findMetadataFile(dir string) string {
	for _, name := range metadataFileNames {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// loadPhaseMetadata reads and JSON-decodes the phase metadata file. A
// missing file is not an error (callers check findMetadataFile first); a
// malformed file returns core.ErrMetadataParse so the caller can log and
// skip the overlay per the loader's recoverable-error contract.
func loadPhaseMetadata(path, phase string) (*core.PhaseMetadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrMetadataParse(phase, err)
	}
	var m core.PhaseMetadata
	if err := json.Unmarshal(content, &m); err != nil {
		return nil, core.ErrMetadataParse(phase, err)
	}
	return &m, nil
}

// overlayMetadata applies the phase metadata entry's authoritative fields
// onto t, per the task loader's overlay rule: dependencies, estimate,
// priority, and status from metadata always win over the descriptor.
func overlayMetadata(t *core.Task, entry core.PhaseTaskEntry) {
	if len(entry.Dependencies) > 0 {
		deps := make([]core.TaskID, 0, len(entry.Dependencies))
		for _, d := range entry.Dependencies {
			deps = append(deps, core.TaskID(d))
		}
		t.Dependencies = deps
	}
	if entry.Estimate > 0 {
		t.EstimateHours = entry.Estimate
	}
	if entry.Priority != "" {
		t.Priority = core.Priority(entry.Priority)
	}
	if entry.Status != "" {
		if mapped, ok := core.MapMetadataStatus(entry.Status); ok {
			t.Status = mapped
		}
	}
	if t.Name == "" {
		if entry.Name != "" {
			t.Name = entry.Name
		} else if entry.Title != "" {
			t.Name = entry.Title
		}
	}
}
