package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd_PrintsBuildMetadata(t *testing.T) {
	origV, origC, origD := appVersion, appCommit, appDate
	defer func() { appVersion, appCommit, appDate = origV, origC, origD }()
	SetVersion("1.2.3", "abc123", "2026-01-01")

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"1.2.3", "abc123", "2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}
