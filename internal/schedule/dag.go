// Package schedule validates a task DAG and partitions it into ordered
// execution waves, respecting both explicit dependencies and
// author-declared parallel groups.
package schedule

import (
	"sort"

	"github.com/atrium-run/atrium/internal/core"
)

// BuildExecutionWaves validates tasks and returns an ordered sequence of
// waves; within each wave, tasks may run concurrently, waves themselves
// execute strictly in order. See spec §4.2.
func BuildExecutionWaves(tasks []*core.Task) ([][]*core.Task, error) {
	byID, err := indexByID(tasks)
	if err != nil {
		return nil, err
	}
	if err := checkUnknownDependencies(tasks, byID); err != nil {
		return nil, err
	}
	if err := detectCycle(tasks, byID); err != nil {
		return nil, err
	}

	groups := distinctGroupsAscending(tasks)

	completed := map[core.TaskID]bool{}
	var waves [][]*core.Task

	for _, group := range groups {
		remaining := tasksInGroup(tasks, group)
		for len(remaining) > 0 {
			var wave []*core.Task
			var stillRemaining []*core.Task
			for _, t := range remaining {
				if dependenciesSatisfied(t, completed) {
					wave = append(wave, t)
				} else {
					stillRemaining = append(stillRemaining, t)
				}
			}
			if len(wave) == 0 {
				ids := make([]string, 0, len(stillRemaining))
				for _, t := range stillRemaining {
					ids = append(ids, string(t.ID))
				}
				return nil, core.ErrUnschedulableTasks(ids)
			}
			sort.Slice(wave, func(i, j int) bool { return wave[i].ID < wave[j].ID })
			for _, t := range wave {
				completed[t.ID] = true
			}
			waves = append(waves, wave)
			remaining = stillRemaining
		}
	}

	return waves, nil
}

// TopologicalSort linearises tasks for sequential mode; ties are broken by
// (parallelGroup asc, priority asc) with P0 < P1 < P2 < P3.
func TopologicalSort(tasks []*core.Task) ([]*core.Task, error) {
	byID, err := indexByID(tasks)
	if err != nil {
		return nil, err
	}
	if err := checkUnknownDependencies(tasks, byID); err != nil {
		return nil, err
	}
	if err := detectCycle(tasks, byID); err != nil {
		return nil, err
	}

	completed := map[core.TaskID]bool{}
	remaining := append([]*core.Task{}, tasks...)
	var order []*core.Task

	for len(remaining) > 0 {
		var eligible []*core.Task
		var stillRemaining []*core.Task
		for _, t := range remaining {
			if dependenciesSatisfied(t, completed) {
				eligible = append(eligible, t)
			} else {
				stillRemaining = append(stillRemaining, t)
			}
		}
		if len(eligible) == 0 {
			// Cycle detection above should have already caught this, but
			// guard defensively against an inconsistent input.
			ids := make([]string, 0, len(stillRemaining))
			for _, t := range stillRemaining {
				ids = append(ids, string(t.ID))
			}
			return nil, core.ErrUnschedulableTasks(ids)
		}
		sort.Slice(eligible, func(i, j int) bool {
			if eligible[i].ParallelGroup != eligible[j].ParallelGroup {
				return eligible[i].ParallelGroup < eligible[j].ParallelGroup
			}
			if eligible[i].Priority.Rank() != eligible[j].Priority.Rank() {
				return eligible[i].Priority.Rank() < eligible[j].Priority.Rank()
			}
			return eligible[i].ID < eligible[j].ID
		})
		for _, t := range eligible {
			completed[t.ID] = true
		}
		order = append(order, eligible...)
		remaining = stillRemaining
	}
	return order, nil
}

// EstimatedDuration computes wave duration as max(estimate) within a wave
// (parallel execution), summed across waves.
func EstimatedDuration(waves [][]*core.Task) float64 {
	var total float64
	for _, wave := range waves {
		var max float64
		for _, t := range wave {
			if t.EstimateHours > max {
				max = t.EstimateHours
			}
		}
		total += max
	}
	return total
}

func indexByID(tasks []*core.Task) (map[core.TaskID]*core.Task, error) {
	byID := make(map[core.TaskID]*core.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID, nil
}

func checkUnknownDependencies(tasks []*core.Task, byID map[core.TaskID]*core.Task) error {
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return core.ErrUnknownDependency(string(t.ID), string(dep))
			}
		}
	}
	return nil
}

// detectCycle runs a depth-first traversal tracking a recursion stack; on
// revisiting an in-stack node it fails with CircularDependency naming a
// path that includes the cycle.
func detectCycle(tasks []*core.Task, byID map[core.TaskID]*core.Task) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[core.TaskID]int, len(tasks))
	var path []core.TaskID
	var cyclePath []string

	var dfs func(id core.TaskID) bool
	dfs = func(id core.TaskID) bool {
		color[id] = gray
		path = append(path, id)
		t := byID[id]
		for _, dep := range t.Dependencies {
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				// Found the cycle: path from dep's first occurrence to here.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				for _, p := range path[start:] {
					cyclePath = append(cyclePath, string(p))
				}
				cyclePath = append(cyclePath, string(dep))
				return true
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	// Stable iteration order for deterministic cycle reporting.
	ids := make([]core.TaskID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if color[id] == white {
			if dfs(id) {
				return core.ErrCircularDependency(cyclePath)
			}
		}
	}
	return nil
}

func distinctGroupsAscending(tasks []*core.Task) []int {
	seen := map[int]bool{}
	var groups []int
	for _, t := range tasks {
		g := t.ParallelGroup
		if g == 0 {
			g = 1
		}
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	sort.Ints(groups)
	return groups
}

func tasksInGroup(tasks []*core.Task, group int) []*core.Task {
	var out []*core.Task
	for _, t := range tasks {
		g := t.ParallelGroup
		if g == 0 {
			g = 1
		}
		if g == group {
			out = append(out, t)
		}
	}
	return out
}

func dependenciesSatisfied(t *core.Task, completed map[core.TaskID]bool) bool {
	for _, dep := range t.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}
