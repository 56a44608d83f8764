// Package agent implements the Engine port: spawning a coding-agent CLI for
// a single task prompt, detecting its completion token, and applying the
// inner retry envelope around transient failures.
package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/logging"
)

const defaultCompletionToken = "<promise>COMPLETE</promise>"

// Runner is the minimal capability a concrete engine variant must provide;
// Engine wraps it with completion detection and retries so variants only
// deal with process execution.
type Runner interface {
	Name() string
	Run(ctx context.Context, prompt string, opts core.ExecuteOptions) (core.Result, error)
}

// Engine adapts a Runner into the core.Engine port, adding completion-token
// detection and the inner retry envelope described in spec §4.4: backoff of
// min(1000*2^attempt, 30000)ms between attempts, up to opts.MaxRetries
// retries. A result with Completed=true short-circuits further retries even
// when Success is false, because completion - not the agent's self-reported
// success - is what the envelope waits for.
type Engine struct {
	runner Runner
	logger *logging.Logger
	sleep  func(time.Duration)
}

// New wraps runner with completion detection and the retry envelope.
func New(runner Runner, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{runner: runner, logger: logger, sleep: time.Sleep}
}

func (e *Engine) Name() string { return e.runner.Name() }

// CheckCompletion reports whether output contains the default completion
// token. Callers needing a custom token should inspect opts.CompletionToken
// directly; the port's CheckCompletion method only knows the default.
func (e *Engine) CheckCompletion(output string) bool {
	return strings.Contains(output, defaultCompletionToken)
}

// Execute runs the wrapped runner, retrying up to opts.MaxRetries additional
// times on non-completed results, with exponential backoff between
// attempts. The returned Result carries Completed/Payload derived from
// scanning the runner's output for the completion token.
func (e *Engine) Execute(ctx context.Context, prompt string, opts core.ExecuteOptions) (core.Result, error) {
	if opts.CompletionToken == "" {
		opts.CompletionToken = defaultCompletionToken
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastResult core.Result
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return lastResult, ctx.Err()
		}

		result, err := e.runner.Run(ctx, prompt, opts)
		result.Completed = strings.Contains(result.Output, opts.CompletionToken)
		if payload, ok := parseCompletionPayload(result.Output, opts.CompletionToken); ok {
			result.Payload = payload
		}

		lastResult, lastErr = result, err

		if result.Completed {
			e.logger.Info("agent: completion token detected",
				"engine", e.runner.Name(), "attempt", attempt)
			return result, err
		}
		if err == nil && result.Success {
			return result, nil
		}

		if attempt == maxRetries {
			break
		}
		wait := backoffDuration(attempt)
		e.logger.Warn("agent: retrying after non-completed attempt",
			"engine", e.runner.Name(), "attempt", attempt, "backoff", wait)
		select {
		case <-ctx.Done():
			return lastResult, ctx.Err()
		case <-after(e.sleep, wait):
		}
	}

	return lastResult, lastErr
}

// after invokes sleep in a goroutine and signals completion on the returned
// channel, letting Execute select between it and ctx.Done().
func after(sleep func(time.Duration), d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		sleep(d)
		close(ch)
	}()
	return ch
}

// backoffDuration implements min(1000*2^attempt, 30000) milliseconds.
func backoffDuration(attempt int) time.Duration {
	ms := 1000 * (1 << attempt)
	if ms > 30000 {
		ms = 30000
	}
	return time.Duration(ms) * time.Millisecond
}

// parseCompletionPayload extracts the JSON payload from the
// "<promise>COMPLETE:{...}</promise>" variant, if present.
func parseCompletionPayload(output, baseToken string) (*core.CompletionPayload, bool) {
	prefix := strings.TrimSuffix(baseToken, "</promise>") + ":"
	start := strings.Index(output, prefix)
	if start == -1 {
		return nil, false
	}
	rest := output[start+len(prefix):]
	end := strings.Index(rest, "</promise>")
	if end == -1 {
		return nil, false
	}
	raw := strings.TrimSpace(rest[:end])
	var payload core.CompletionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false
	}
	return &payload, true
}
