package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/store"
)

func TestPrintStatus_ActiveSession(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	if _, err := s.Create(ctx, "demo", "phase-1", []core.TaskID{"T01-001", "T01-002"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := printStatus(ctx, cmd, s, "demo"); err != nil {
		t.Fatalf("printStatus: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "phase-1") {
		t.Errorf("expected output to mention phase-1, got %q", out)
	}
	if !strings.Contains(out, "pending=2") {
		t.Errorf("expected output to mention pending=2, got %q", out)
	}
}

func TestPrintStatus_NoActiveSession(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	defer func() { _ = s.Close() }()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := printStatus(context.Background(), cmd, s, "no-such-project"); err == nil {
		t.Error("expected an error when no active session exists")
	}
}
