package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/atrium-run/atrium/internal/control"
	"github.com/atrium-run/atrium/internal/logging"
)

func findSelf() (*os.Process, error) {
	return os.FindProcess(os.Getpid())
}

func TestInstallSignalHandler_FirstSignalCancelsControl(t *testing.T) {
	d := &deps{logger: logging.NewNop(), control: control.New()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := installSignalHandler(ctx, cancel, d)
	defer stop()

	if d.control.IsCancelled() {
		t.Fatal("should not be cancelled before any signal")
	}

	proc, err := findSelf()
	if err != nil {
		t.Fatalf("finding own process: %v", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("sending signal: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for !d.control.IsCancelled() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for control.Cancel()")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestInstallSignalHandler_SecondSignalCancelsContext(t *testing.T) {
	d := &deps{logger: logging.NewNop(), control: control.New()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := installSignalHandler(ctx, cancel, d)
	defer stop()

	proc, err := findSelf()
	if err != nil {
		t.Fatalf("finding own process: %v", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("sending first signal: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("sending second signal: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ctx to be cancelled by the second signal")
	}
}
