// Package hooks fires the lifecycle hooks described in spec §4.6:
// beforePhase, beforeTask, afterTask, onSuccess, onError, each a shell
// command with execution context injected as environment variables.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/atrium-run/atrium/internal/core"
)

// EnvPrefix is prepended to every hook context variable name. It is a
// packaging choice (spec §6), not part of the core contract.
const EnvPrefix = "ATRIUM_"

// ShellRunner is the default HookRunner: it spawns each hook command
// through the platform shell, capturing combined stdout+stderr the same
// way the agent CLI adapters capture subprocess output.
type ShellRunner struct {
	Timeout time.Duration
}

// NewShellRunner constructs a ShellRunner with a sane default timeout.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Timeout: 2 * time.Minute}
}

// Run spawns command through the shell with hc's fields injected as
// ATRIUM_-prefixed environment variables. beforePhase/beforeTask failures
// are fatal to the caller's current step; the runner itself never decides
// that — it only reports success/output and lets name.Fatal() (core.HookName)
// tell the caller how to react.
func (r *ShellRunner) Run(ctx context.Context, name core.HookName, command string, hc core.HookContext) (core.HookResult, error) {
	if command == "" {
		return core.HookResult{Success: true}, nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, flag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}

	// #nosec G204 -- command is author-configured hook shell text, not user input
	cmd := exec.CommandContext(ctx, shell, flag, command)
	cmd.Env = append(os.Environ(),
		EnvPrefix+"PROJECT="+hc.Project,
		EnvPrefix+"PHASE="+hc.Phase,
		EnvPrefix+"TASK_ID="+hc.TaskID,
		EnvPrefix+"TASK_NAME="+hc.TaskName,
		EnvPrefix+"STATUS="+hc.Status,
		EnvPrefix+"ERROR="+hc.Error,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	result := core.HookResult{Success: runErr == nil, Output: out.String()}
	if runErr != nil {
		return result, fmt.Errorf("hook %s failed: %w", name, runErr)
	}
	return result, nil
}

var _ core.HookRunner = (*ShellRunner)(nil)

// Config is the set of configured hook commands, one per lifecycle point.
// Any of these may be empty, meaning "no hook".
type Config struct {
	BeforePhase string
	BeforeTask  string
	AfterTask   string
	OnSuccess   string
	OnError     string
}

// CommandFor resolves the configured shell command for name.
func (c Config) CommandFor(name core.HookName) string {
	switch name {
	case core.HookBeforePhase:
		return c.BeforePhase
	case core.HookBeforeTask:
		return c.BeforeTask
	case core.HookAfterTask:
		return c.AfterTask
	case core.HookOnSuccess:
		return c.OnSuccess
	case core.HookOnError:
		return c.OnError
	default:
		return ""
	}
}

// Fire runs the hook named by name using runner, applying spec §4.6's
// fatal-vs-warning policy: a fatal hook's error is returned to the caller
// (who must abort the current step); a warning hook's error is swallowed
// after the result is returned so the caller can log it without aborting.
func Fire(ctx context.Context, runner core.HookRunner, cfg Config, name core.HookName, hc core.HookContext) (core.HookResult, error) {
	command := cfg.CommandFor(name)
	result, err := runner.Run(ctx, name, command, hc)
	if err != nil && !name.Fatal() {
		// Warning only: the caller should log this but must not treat it
		// as a task-level failure.
		return result, nil
	}
	return result, err
}
