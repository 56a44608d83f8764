package task

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadTasks_LinearPhase(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	phaseDir := filepath.Join(root, "P00-bootstrap")

	writeFile(t, filepath.Join(phaseDir, "T00-001-init", "task.md"), "---\nname: init repo\ndescription: set up scaffolding\n---\n")
	writeFile(t, filepath.Join(phaseDir, "T00-002-build", "task.md"), "---\nname: build it\ndependencies: [T00-001]\n---\n")

	l := New(root, nil)
	tasks, err := l.LoadTasks("p00")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, core.TaskID("T00-001"), tasks[0].ID)
	assert.Equal(t, "init repo", tasks[0].Name)
	assert.Equal(t, core.TaskID("T00-002"), tasks[1].ID)
	assert.Equal(t, []core.TaskID{"T00-001"}, tasks[1].Dependencies)
}

func TestLoadTasks_MetadataOverlayWins(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	phaseDir := filepath.Join(root, "P01-auth")

	writeFile(t, filepath.Join(phaseDir, "T01-001-login", "task.md"),
		"---\nname: login flow\npriority: P3\ndependencies: [T01-999]\n---\n")

	meta := core.PhaseMetadata{
		Phase:       "p01",
		PhaseNumber: 1,
		PhaseName:   "Auth",
		Tasks: []core.PhaseTaskEntry{
			{ID: "T01-001", Estimate: 4, Priority: "P0", Status: "in_progress", Dependencies: []string{}},
		},
	}
	b, err := json.Marshal(meta)
	require.NoError(t, err)
	writeFile(t, filepath.Join(phaseDir, "phase.json"), string(b))

	l := New(root, nil)
	tasks, err := l.LoadTasks("p01")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, core.Priority("P0"), got.Priority)
	assert.Equal(t, core.TaskStatusInProgress, got.Status)
	assert.Equal(t, 4.0, got.EstimateHours)
}

func TestLoadTasks_MissingPhaseDirReturnsEmpty(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := New(root, nil)
	tasks, err := l.LoadTasks("p09")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestLoadTasks_MalformedDescriptorDegradesToMinimal(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	phaseDir := filepath.Join(root, "P02-x")
	writeFile(t, filepath.Join(phaseDir, "T02-001-weird", "task.md"),
		"---\nname: [unterminated\n---\n")

	l := New(root, nil)
	tasks, err := l.LoadTasks("p02")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, core.TaskID("T02-001"), tasks[0].ID)
	assert.NotEmpty(t, tasks[0].Name)
}

func TestLoadTasks_MalformedMetadataSkipsOverlay(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	phaseDir := filepath.Join(root, "P03-y")
	writeFile(t, filepath.Join(phaseDir, "T03-001-thing", "task.md"), "---\nname: thing\n---\n")
	writeFile(t, filepath.Join(phaseDir, "phase.json"), "{not json")

	l := New(root, nil)
	tasks, err := l.LoadTasks("p03")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "thing", tasks[0].Name)
}

func TestLoadTask_SingleLookup(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	phaseDir := filepath.Join(root, "P04-z")
	writeFile(t, filepath.Join(phaseDir, "T04-001-only", "task.md"), "---\nname: the only one\n---\n")

	l := New(root, nil)
	got, found, err := l.LoadTask("T04-001")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "the only one", got.Name)

	_, found, err = l.LoadTask("T04-002")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadTask_InvalidID(t *testing.T) {
	t.Parallel()
	l := New(t.TempDir(), nil)
	_, _, err := l.LoadTask("bogus")
	assert.Error(t, err)
}
