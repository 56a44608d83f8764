package agent

import (
	"context"
	"testing"
	"time"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubprocess_Run_Success(t *testing.T) {
	t.Parallel()
	s := NewSubprocess("echoer", "/bin/sh", []string{"-c", "cat; echo '<promise>COMPLETE</promise>'"}, nil)
	result, err := s.Run(context.Background(), "hello", core.ExecuteOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "hello")
	assert.Contains(t, result.Output, "<promise>COMPLETE</promise>")
}

func TestSubprocess_Run_CompletionTokenOnStderr(t *testing.T) {
	t.Parallel()
	s := NewSubprocess("stderr-logger", "/bin/sh", []string{"-c", "cat >/dev/null; echo '<promise>COMPLETE</promise>' 1>&2"}, nil)
	result, err := s.Run(context.Background(), "hello", core.ExecuteOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "<promise>COMPLETE</promise>")
}

func TestSubprocess_Run_NonZeroExit(t *testing.T) {
	t.Parallel()
	s := NewSubprocess("failer", "/bin/sh", []string{"-c", "cat >/dev/null; exit 3"}, nil)
	result, err := s.Run(context.Background(), "hello", core.ExecuteOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ExitCode)
}

func TestSubprocess_Run_Timeout(t *testing.T) {
	t.Parallel()
	s := NewSubprocess("sleeper", "/bin/sh", []string{"-c", "cat >/dev/null; sleep 5"}, nil)
	start := time.Now()
	result, err := s.Run(context.Background(), "hello", core.ExecuteOptions{Timeout: 200 * time.Millisecond})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 124, result.ExitCode)
	assert.Less(t, elapsed, 6*time.Second, "graceful kill should cut the sleep short")
}
