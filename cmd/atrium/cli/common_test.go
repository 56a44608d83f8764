package cli

import (
	"testing"
	"time"
)

func TestProjectName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"/home/user/projects/atrium": "atrium",
		"/":                          "atrium",
		"relative":                   "relative",
		"":                           "atrium",
	}
	for in, want := range cases {
		if got := projectName(in); got != want {
			t.Errorf("projectName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDurationOr(t *testing.T) {
	t.Parallel()
	if got := parseDurationOr("5m", time.Minute); got != 5*time.Minute {
		t.Errorf("expected 5m, got %v", got)
	}
	if got := parseDurationOr("not-a-duration", time.Minute); got != time.Minute {
		t.Errorf("expected fallback for invalid duration, got %v", got)
	}
	if got := parseDurationOr("", time.Minute); got != time.Minute {
		t.Errorf("expected fallback for empty duration, got %v", got)
	}
	if got := parseDurationOr("-5s", time.Minute); got != time.Minute {
		t.Errorf("expected fallback for non-positive duration, got %v", got)
	}
}

func TestRunMode(t *testing.T) {
	t.Parallel()
	if runMode("sequential") != 0 {
		t.Error("expected sequential mode to map to orchestrate.Sequential (0)")
	}
	if runMode("parallel") != 1 {
		t.Error("expected parallel mode to map to orchestrate.Parallel (1)")
	}
	if runMode("") != 1 {
		t.Error("expected empty mode to default to Parallel")
	}
}
