package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if Exists(path) {
		t.Error("expected Exists to be false before the file is created")
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !Exists(path) {
		t.Error("expected Exists to be true after the file is created")
	}
}

func TestFileWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	fw, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = fw.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	changes := fw.Changes(ctx)

	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-changes:
	case <-ctx.Done():
		t.Fatal("timed out waiting for a change notification")
	}
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	other := filepath.Join(dir, "unrelated.txt")

	fw, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = fw.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	changes := fw.Changes(ctx)

	if err := os.WriteFile(other, []byte("noise"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-changes:
		t.Fatal("did not expect a notification for an unrelated file")
	case <-ctx.Done():
	}
}
