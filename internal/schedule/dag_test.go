package schedule

import (
	"testing"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id string, group int, priority core.Priority, deps ...string) *core.Task {
	var d []core.TaskID
	for _, x := range deps {
		d = append(d, core.TaskID(x))
	}
	return &core.Task{ID: core.TaskID(id), Name: id, ParallelGroup: group, Priority: priority, Dependencies: d}
}

func TestBuildExecutionWaves_LinearThreeTask(t *testing.T) {
	t.Parallel()
	tasks := []*core.Task{
		task("T00-001", 1, core.PriorityP1),
		task("T00-002", 1, core.PriorityP1, "T00-001"),
		task("T00-003", 1, core.PriorityP1, "T00-002"),
	}
	waves, err := BuildExecutionWaves(tasks)
	require.NoError(t, err)
	require.Len(t, waves, 3)
	for _, w := range waves {
		assert.Len(t, w, 1)
	}
	assert.Equal(t, core.TaskID("T00-001"), waves[0][0].ID)
	assert.Equal(t, core.TaskID("T00-002"), waves[1][0].ID)
	assert.Equal(t, core.TaskID("T00-003"), waves[2][0].ID)
}

func TestBuildExecutionWaves_ParallelFanOut(t *testing.T) {
	t.Parallel()
	tasks := []*core.Task{
		task("A", 1, core.PriorityP1),
		task("B", 1, core.PriorityP1, "A"),
		task("C", 1, core.PriorityP1, "A"),
	}
	waves, err := BuildExecutionWaves(tasks)
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.Len(t, waves[0], 1)
	assert.Len(t, waves[1], 2)
}

func TestBuildExecutionWaves_Cycle(t *testing.T) {
	t.Parallel()
	tasks := []*core.Task{
		task("X", 1, core.PriorityP1, "Y"),
		task("Y", 1, core.PriorityP1, "X"),
	}
	_, err := BuildExecutionWaves(tasks)
	require.Error(t, err)
	de, ok := err.(*core.DomainError)
	require.True(t, ok)
	assert.Equal(t, core.CodeCircularDependency, de.Code)
}

func TestBuildExecutionWaves_UnknownDependency(t *testing.T) {
	t.Parallel()
	tasks := []*core.Task{task("T00-001", 1, core.PriorityP1, "T00-999")}
	_, err := BuildExecutionWaves(tasks)
	require.Error(t, err)
	de, ok := err.(*core.DomainError)
	require.True(t, ok)
	assert.Equal(t, core.CodeUnknownDependency, de.Code)
}

func TestBuildExecutionWaves_UnschedulableCrossGroup(t *testing.T) {
	t.Parallel()
	// T2 is in group 1 but depends on T1 in group 2: group 1 task with a
	// dependency that can never be satisfied within group 1's sweep.
	tasks := []*core.Task{
		task("T00-001", 2, core.PriorityP1),
		task("T00-002", 1, core.PriorityP1, "T00-001"),
	}
	_, err := BuildExecutionWaves(tasks)
	require.Error(t, err)
	de, ok := err.(*core.DomainError)
	require.True(t, ok)
	assert.Equal(t, core.CodeUnschedulableTasks, de.Code)
}

func TestBuildExecutionWaves_Invariants(t *testing.T) {
	t.Parallel()
	tasks := []*core.Task{
		task("A", 1, core.PriorityP1),
		task("B", 1, core.PriorityP1, "A"),
		task("C", 2, core.PriorityP1, "A"),
		task("D", 2, core.PriorityP1, "B", "C"),
	}
	waves, err := BuildExecutionWaves(tasks)
	require.NoError(t, err)

	seen := map[core.TaskID]int{}
	idxOfWave := map[core.TaskID]int{}
	for i, w := range waves {
		for _, tk := range w {
			seen[tk.ID]++
			idxOfWave[tk.ID] = i
		}
	}
	for _, tk := range tasks {
		assert.Equal(t, 1, seen[tk.ID], "task %s must appear exactly once", tk.ID)
	}
	for _, tk := range tasks {
		for _, dep := range tk.Dependencies {
			assert.Less(t, idxOfWave[dep], idxOfWave[tk.ID])
		}
	}
	// No two tasks in the same wave may depend on each other.
	for _, w := range waves {
		for _, ti := range w {
			for _, tj := range w {
				if ti.ID == tj.ID {
					continue
				}
				assert.False(t, ti.DependsOn(tj.ID))
			}
		}
	}
}

func TestTopologicalSort_IsPermutationRespectingEdges(t *testing.T) {
	t.Parallel()
	tasks := []*core.Task{
		task("C", 1, core.PriorityP2, "B"),
		task("A", 1, core.PriorityP0),
		task("B", 1, core.PriorityP1, "A"),
	}
	order, err := TopologicalSort(tasks)
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := map[core.TaskID]int{}
	for i, t := range order {
		pos[t.ID] = i
	}
	assert.Less(t, pos["A"], pos["B"])
	assert.Less(t, pos["B"], pos["C"])
}

func TestEstimatedDuration(t *testing.T) {
	t.Parallel()
	a := task("A", 1, core.PriorityP1)
	a.EstimateHours = 2
	b := task("B", 1, core.PriorityP1)
	b.EstimateHours = 5
	c := task("C", 2, core.PriorityP1)
	c.EstimateHours = 3

	waves := [][]*core.Task{{a, b}, {c}}
	assert.Equal(t, 8.0, EstimatedDuration(waves))
}
