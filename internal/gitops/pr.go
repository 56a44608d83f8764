package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atrium-run/atrium/internal/core"
)

// GHPullRequestCreator implements core.PullRequestCreator by shelling out to
// the GitHub CLI (`gh pr create`), the same external tool the teacher's
// internal/adapters/github.Client drives — trimmed here to the single
// fire-and-forget operation spec §4.7 needs (issue/review/merge management
// is out of the core's scope).
type GHPullRequestCreator struct {
	Dir     string // repository directory gh runs in
	Timeout time.Duration
}

// NewGHPullRequestCreator constructs a creator rooted at dir (the main repo
// or a task's worktree — gh resolves the remote from whichever is given).
func NewGHPullRequestCreator(dir string) *GHPullRequestCreator {
	return &GHPullRequestCreator{Dir: dir, Timeout: 30 * time.Second}
}

// CreatePullRequest runs `gh pr create` for branch. Per spec §4.7/§9, PR
// creation is best-effort: callers treat a non-nil error as a warning, never
// a task failure, and tolerate duplicate PRs on retry since gh's behavior on
// an already-open PR for the branch is out of the core's control.
func (g *GHPullRequestCreator) CreatePullRequest(ctx context.Context, taskID core.TaskID, branch, title, body string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"pr", "create", "--head", branch, "--title", title, "--body", body}
	// #nosec G204 -- args are built from validated task/branch fields, not raw user input
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = g.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", core.ErrPRCreateFailure(string(taskID), fmt.Errorf("gh pr create: %w: %s", err, out.String()))
	}

	url := strings.TrimSpace(lastLine(out.String()))
	return url, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

var _ core.PullRequestCreator = (*GHPullRequestCreator)(nil)
