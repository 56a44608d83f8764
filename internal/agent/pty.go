package agent

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/logging"
)

// PTYSubprocess is a Runner for agent CLIs that refuse to run non-interactively
// unless their stdout is a TTY. It runs the command attached to a pseudo-
// terminal instead of plain pipes, otherwise matching Subprocess behavior.
type PTYSubprocess struct {
	name   string
	path   string
	args   []string
	logger *logging.Logger
}

// NewPTYSubprocess builds a PTY-backed runner.
func NewPTYSubprocess(name, path string, args []string, logger *logging.Logger) *PTYSubprocess {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PTYSubprocess{name: name, path: path, args: args, logger: logger}
}

func (p *PTYSubprocess) Name() string { return p.name }

func (p *PTYSubprocess) Run(ctx context.Context, prompt string, opts core.ExecuteOptions) (core.Result, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 600 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{}, p.args...)
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}

	// #nosec G204 -- path/args come from validated engine registration
	cmd := exec.CommandContext(ctx, p.path, args...)
	if opts.WorkingDirectory != "" {
		cmd.Dir = opts.WorkingDirectory
	}
	cmd.Env = append(os.Environ(), "CI=true")

	start := time.Now()
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return core.Result{}, err
	}
	defer ptmx.Close()

	if _, err := io.WriteString(ptmx, prompt+"\n"); err != nil {
		p.logger.Warn("agent: writing prompt to pty failed", "engine", p.name, "error", err)
	}

	var output strings.Builder
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				output.Write(buf[:n])
			}
			if readErr != nil {
				return
			}
		}
	}()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		waitErr = <-waitDone
	}
	<-copyDone

	result := core.Result{
		Output:     output.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.ExitCode = 124
		return result, core.ErrTimeout("pty agent timed out after " + timeout.String())
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		result.Success = false
		return result, nil
	}
	result.ExitCode = 0
	result.Success = true
	return result, nil
}
