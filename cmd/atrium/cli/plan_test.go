package cli

import (
	"strings"
	"testing"

	"github.com/atrium-run/atrium/internal/core"
)

func TestDepsList_NoDependencies(t *testing.T) {
	t.Parallel()
	task := &core.Task{ID: "T01-001"}
	if got := depsList(task); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
}

func TestDepsList_WithDependencies(t *testing.T) {
	t.Parallel()
	task := &core.Task{ID: "T01-002", Dependencies: []core.TaskID{"T01-001", "T01-000"}}
	got := depsList(task)
	if got != "T01-001, T01-000" {
		t.Errorf("expected joined dependency list, got %q", got)
	}
}

func TestCountTasks(t *testing.T) {
	t.Parallel()
	waves := [][]*core.Task{
		{{ID: "T01-001"}, {ID: "T01-002"}},
		{{ID: "T01-003"}},
	}
	if got := countTasks(waves); got != 3 {
		t.Errorf("expected 3 tasks, got %d", got)
	}
}

func TestRenderPlanMarkdown(t *testing.T) {
	t.Parallel()
	waves := [][]*core.Task{
		{{ID: "T01-001", Name: "Bootstrap config"}},
		{{ID: "T01-002", Name: "Wire CLI", Dependencies: []core.TaskID{"T01-001"}}},
	}
	md := renderPlanMarkdown("phase-1", waves)

	for _, want := range []string{"Plan: phase-1", "Wave 1", "Wave 2", "T01-001", "T01-002", "depends on: T01-001"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}
}
