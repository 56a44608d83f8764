package orchestrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/events"
	"github.com/atrium-run/atrium/internal/hooks"
	"github.com/atrium-run/atrium/internal/schedule"
)

// RunMode selects sequential or bounded-parallel wave execution (§4.7/§5).
type RunMode int

const (
	Sequential RunMode = iota
	Parallel
)

// RunWaves executes waves in order; within a wave, Sequential mode runs
// tasks one at a time and fails fast on the first unhandled error, while
// Parallel mode splits the wave into chunks of at most MaxParallel tasks
// run concurrently with allSettled semantics (one chunk's failures never
// cancel its peers). onSuccess fires only if no task failed across every
// wave; onError fires as soon as any task fails.
func (e *Executor) RunWaves(ctx context.Context, sessionID string, waves [][]*core.Task, mode RunMode) error {
	anyFailed := false
	start := time.Now()
	phase := phaseOf(waves)

	hc := core.HookContext{Project: e.Project, Phase: phase}
	if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookBeforePhase, hc); err != nil {
		return fmt.Errorf("beforePhase hook: %w", err)
	}

	e.publish(events.NewPhaseStartedEvent(sessionID, e.Project, phase))

	for i, wave := range waves {
		if e.Control != nil {
			if err := e.Control.CheckCancelled(); err != nil {
				return err
			}
			if err := e.Control.WaitIfPaused(ctx); err != nil {
				return err
			}
		}

		e.Logger.Info("executing wave", "index", i, "size", len(wave), "mode", mode)

		var outcomes []taskOutcome
		switch mode {
		case Sequential:
			for _, t := range wave {
				err := e.runTaskWithRetries(ctx, sessionID, t)
				outcomes = append(outcomes, taskOutcome{Task: t, Err: err})
				if err != nil {
					anyFailed = true
					e.fireRunError(ctx, sessionID, t, err)
					e.publish(events.NewSessionFailedEvent(sessionID, e.Project, phase, err))
					return fmt.Errorf("wave %d: task %s: %w", i, t.ID, err)
				}
			}
		case Parallel:
			outcomes = e.runWaveParallel(ctx, sessionID, wave)
			for _, o := range outcomes {
				if o.Err != nil {
					anyFailed = true
					e.fireRunError(ctx, sessionID, o.Task, o.Err)
				}
			}
		}
	}

	e.publish(events.NewPhaseCompletedEvent(sessionID, e.Project, phase, time.Since(start)))

	if !anyFailed {
		hc := core.HookContext{Project: e.Project, Status: "success"}
		if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookOnSuccess, hc); err != nil {
			e.Logger.Warn("onSuccess hook failed", "error", err)
		}
		e.publish(events.NewSessionCompletedEvent(sessionID, e.Project, time.Since(start)))
	} else {
		e.publish(events.NewSessionFailedEvent(sessionID, e.Project, phase, fmt.Errorf("one or more tasks failed")))
	}
	return nil
}

// phaseOf returns the phase name shared by waves' tasks, for event
// tagging; waves are always built from a single phase's task set, so the
// first task's Phase field speaks for the whole run.
func phaseOf(waves [][]*core.Task) string {
	for _, wave := range waves {
		if len(wave) > 0 {
			return wave[0].Phase
		}
	}
	return ""
}

// runWaveParallel splits wave into chunks of at most MaxParallel tasks,
// running each chunk concurrently; the next chunk starts only after the
// current one's goroutines all complete (allSettled: no goroutine's error
// cancels its peers).
func (e *Executor) runWaveParallel(ctx context.Context, sessionID string, wave []*core.Task) []taskOutcome {
	outcomes := make([]taskOutcome, len(wave))

	for start := 0; start < len(wave); start += e.MaxParallel {
		end := start + e.MaxParallel
		if end > len(wave) {
			end = len(wave)
		}
		chunk := wave[start:end]

		var wg sync.WaitGroup
		wg.Add(len(chunk))
		for idx, t := range chunk {
			idx, t := idx, t
			go func() {
				defer wg.Done()
				err := e.runTaskWithRetries(ctx, sessionID, t)
				outcomes[start+idx] = taskOutcome{Task: t, Err: err}
			}()
		}
		wg.Wait()
	}
	return outcomes
}

func (e *Executor) fireRunError(ctx context.Context, sessionID string, task *core.Task, taskErr error) {
	hc := core.HookContext{Project: e.Project, Phase: task.Phase, TaskID: string(task.ID), TaskName: task.Name, Status: "error", Error: taskErr.Error()}
	if _, err := hooks.Fire(ctx, e.HookRunner, e.HookConfig, core.HookOnError, hc); err != nil {
		e.Logger.Warn("onError hook failed", "task", task.ID, "error", err)
	}
}

// Plan computes the execution waves for tasks without side effects, for dry
// runs and status reporting.
func Plan(tasks []*core.Task) ([][]*core.Task, error) {
	return schedule.BuildExecutionWaves(tasks)
}
