package orchestrate

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/atrium-run/atrium/internal/core"
)

// ValidateCommands are the project-configured lint/test shell commands run
// in a task's worktree after the agent signals completion (§4.7,
// non-fast mode). Either may be empty, meaning "skip this step".
type ValidateCommands struct {
	Lint    string
	Test    string
	Timeout time.Duration
}

// runShell runs command in dir through the platform shell, returning a
// ValidationFailure error tagged with step if the exit code is non-zero.
func runShell(ctx context.Context, taskID core.TaskID, step, command, dir string, timeout time.Duration) error {
	if command == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, flag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}
	// #nosec G204 -- command is author-configured lint/test text, not user input
	cmd := exec.CommandContext(ctx, shell, flag, command)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return core.ErrValidationFailure(string(taskID), step, exitCode).WithCause(err).WithDetail("output", out.String())
	}
	return nil
}

// Validate runs lint then test in dir. Non-fast mode only; fast mode skips
// this step entirely (the caller decides whether to call Validate at all).
func Validate(ctx context.Context, taskID core.TaskID, cmds ValidateCommands, dir string) error {
	if err := runShell(ctx, taskID, "lint", cmds.Lint, dir, cmds.Timeout); err != nil {
		return err
	}
	return runShell(ctx, taskID, "test", cmds.Test, dir, cmds.Timeout)
}
