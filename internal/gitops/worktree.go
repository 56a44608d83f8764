package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/logging"
)

// WorktreeManager implements core.WorktreeManager by shelling out to the
// system git binary for lifecycle mutations (worktree add/remove, branch
// create/delete, commit, push) and go-git for read-only queries. The
// canonical path for a task is a pure function of (baseDir, project,
// taskID), so resuming a session never needs to remember a path.
type WorktreeManager struct {
	mainRepo string // repository worktrees are created from
	baseDir  string // root directory holding one subdirectory per worktree
	project  string
	gitPath  string
	timeout  time.Duration
	logger   *logging.Logger
}

// New constructs a WorktreeManager. mainRepo is the existing git checkout
// worktrees are cut from; baseDir is where new worktree directories live.
func New(mainRepo, baseDir, project string, logger *logging.Logger) (*WorktreeManager, error) {
	absMain, err := filepath.Abs(mainRepo)
	if err != nil {
		return nil, fmt.Errorf("resolving main repo path: %w", err)
	}
	gitPath, err := resolveGitBinaryPath(absMain)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WorktreeManager{
		mainRepo: absMain,
		baseDir:  baseDir,
		project:  project,
		gitPath:  gitPath,
		timeout:  30 * time.Second,
		logger:   logger,
	}, nil
}

// CanonicalPath returns <baseDir>/<project>/<taskID>, with no dependence on
// the branch slug or any prior state.
func (m *WorktreeManager) CanonicalPath(taskID core.TaskID) string {
	return filepath.Join(m.baseDir, m.project, string(taskID))
}

// branchName builds <project>/<taskID>[-<slug>], lowercased.
func (m *WorktreeManager) branchName(taskID core.TaskID, slug string) string {
	name := m.project + "/" + string(taskID)
	if slug != "" {
		name += "-" + slug
	}
	return strings.ToLower(name)
}

func (m *WorktreeManager) run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// exec.CommandContext does not invoke a shell; validateGit* guards
	// against option/argument injection into git itself.
	cmd := exec.CommandContext(ctx, m.gitPath, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrTimeout("git command timed out")
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Create is idempotent: if the worktree directory already exists and is a
// valid git worktree, it is reused rather than recreated.
func (m *WorktreeManager) Create(ctx context.Context, taskID core.TaskID, opts core.CreateWorktreeOptions) (core.WorktreeHandle, error) {
	path := m.CanonicalPath(taskID)
	branch := m.branchName(taskID, opts.Slug)

	if fi, err := os.Stat(filepath.Join(path, ".git")); err == nil && fi != nil {
		if view, err := openRepoView(path); err == nil {
			if current, err := view.currentBranch(); err == nil && current == branch {
				return core.WorktreeHandle{Path: path, Branch: branch}, nil
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return core.WorktreeHandle{}, fmt.Errorf("creating worktree parent directory: %w", err)
	}
	if err := validateGitBranchName(branch); err != nil {
		return core.WorktreeHandle{}, err
	}

	if opts.BaseBranch != "" {
		if err := validateGitRev(opts.BaseBranch); err == nil {
			if _, err := m.run(ctx, m.mainRepo, "fetch", "origin", opts.BaseBranch); err != nil {
				m.logger.Warn("gitops: fetch baseBranch failed, continuing with local state", "base_branch", opts.BaseBranch, "error", err)
			}
		}
	}

	exists, err := m.branchExistsInMain(ctx, branch)
	if err != nil {
		return core.WorktreeHandle{}, err
	}

	var args []string
	if exists {
		args = []string{"worktree", "add", path, branch}
	} else {
		args = []string{"worktree", "add", "-b", branch, path}
		base := opts.BaseBranch
		if base != "" {
			if err := validateGitRev(base); err != nil {
				return core.WorktreeHandle{}, err
			}
			args = append(args, base)
		}
	}
	if _, err := m.run(ctx, m.mainRepo, args...); err != nil {
		return core.WorktreeHandle{}, fmt.Errorf("creating worktree for %s: %w", taskID, err)
	}
	m.logger.Info("gitops: worktree created", "task_id", taskID, "path", path, "branch", branch)
	return core.WorktreeHandle{Path: path, Branch: branch}, nil
}

func (m *WorktreeManager) branchExistsInMain(ctx context.Context, branch string) (bool, error) {
	out, err := m.run(ctx, m.mainRepo, "branch", "--list", "--format=%(refname:short)")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == branch {
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes the worktree directory. force passes --force, needed when
// the worktree has uncommitted changes the caller has decided to discard.
// If the native `git worktree remove` fails (a stale or already-corrupted
// worktree entry is the common cause), it falls back to removing the
// directory directly and pruning the worktree's metadata.
func (m *WorktreeManager) Remove(ctx context.Context, taskID core.TaskID, force bool) error {
	path := m.CanonicalPath(taskID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := m.run(ctx, m.mainRepo, args...); err != nil {
		m.logger.Warn("gitops: native worktree remove failed, falling back to filesystem removal", "task_id", taskID, "error", err)
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return fmt.Errorf("removing worktree for %s: native remove failed (%v), filesystem fallback also failed: %w", taskID, err, rmErr)
		}
		if _, pruneErr := m.run(ctx, m.mainRepo, "worktree", "prune"); pruneErr != nil {
			m.logger.Warn("gitops: worktree prune after fallback removal failed", "task_id", taskID, "error", pruneErr)
		}
	}
	return nil
}

// Commit stages (when addAll) and commits the worktree's changes. Returns
// core.ErrNothingToCommit if there is nothing staged or unstaged.
func (m *WorktreeManager) Commit(ctx context.Context, taskID core.TaskID, message string, addAll bool) (string, error) {
	path := m.CanonicalPath(taskID)
	if err := validateGitMessage(message); err != nil {
		return "", err
	}

	view, err := openRepoView(path)
	if err != nil {
		return "", err
	}
	dirty, err := view.hasUncommittedChanges()
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", core.ErrNothingToCommit
	}

	if addAll {
		if _, err := m.run(ctx, path, "add", "-A"); err != nil {
			return "", err
		}
	}
	if _, err := m.run(ctx, path, "commit", "-m", message); err != nil {
		return "", err
	}
	return m.run(ctx, path, "rev-parse", "HEAD")
}

// Push pushes the task's branch, optionally setting the upstream.
func (m *WorktreeManager) Push(ctx context.Context, taskID core.TaskID, setUpstream bool, remote string) error {
	path := m.CanonicalPath(taskID)
	if remote == "" {
		remote = "origin"
	}
	if err := validateGitRemoteName(remote); err != nil {
		return err
	}
	view, err := openRepoView(path)
	if err != nil {
		return err
	}
	branch, err := view.currentBranch()
	if err != nil {
		return err
	}
	if err := validateGitBranchName(branch); err != nil {
		return err
	}

	args := []string{"push"}
	if setUpstream {
		args = append(args, "-u")
	}
	args = append(args, remote, branch)
	_, err = m.run(ctx, path, args...)
	return err
}

// HasUncommittedChanges reports via go-git whether taskID's worktree is
// dirty.
func (m *WorktreeManager) HasUncommittedChanges(_ context.Context, taskID core.TaskID) (bool, error) {
	view, err := openRepoView(m.CanonicalPath(taskID))
	if err != nil {
		return false, err
	}
	return view.hasUncommittedChanges()
}

// ChangedFiles lists the paths go-git's status reports as touched.
func (m *WorktreeManager) ChangedFiles(_ context.Context, taskID core.TaskID) ([]string, error) {
	view, err := openRepoView(m.CanonicalPath(taskID))
	if err != nil {
		return nil, err
	}
	return view.changedFiles()
}

// Diff returns a textual summary of what changed; staged selects the index
// vs HEAD comparison rather than the worktree vs index one.
func (m *WorktreeManager) Diff(_ context.Context, taskID core.TaskID, staged bool) (string, error) {
	view, err := openRepoView(m.CanonicalPath(taskID))
	if err != nil {
		return "", err
	}
	return view.diffSummary(staged)
}

var _ core.WorktreeManager = (*WorktreeManager)(nil)

func resolveGitBinaryPath(repoAbs string) (string, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("git not found in PATH: %w", err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving git path: %w", err)
	}
	real := abs
	if rr, err := filepath.EvalSymlinks(abs); err == nil {
		real = rr
	}
	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("stat git binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("git binary is not a regular file: %s", real)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("git binary is not executable: %s", real)
	}
	if isPathWithinDir(repoAbs, real) {
		return "", fmt.Errorf("refusing to execute git from within repository: %s", real)
	}
	return real, nil
}

func isPathWithinDir(root, path string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func validateGitRemoteName(remote string) error {
	if err := validateNoNul("remote", remote); err != nil {
		return err
	}
	if remote == "" {
		return core.ErrValidation("INVALID_REMOTE", "remote name must not be empty")
	}
	if strings.HasPrefix(remote, "-") {
		return core.ErrValidation("INVALID_REMOTE", "remote name must not start with '-'")
	}
	for _, r := range remote {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return core.ErrValidation("INVALID_REMOTE", fmt.Sprintf("remote name contains invalid character: %q", r))
	}
	return nil
}

func validateGitBranchName(name string) error {
	if err := validateNoNul("branch", name); err != nil {
		return err
	}
	if name == "" {
		return core.ErrValidation("INVALID_BRANCH", "branch name must not be empty")
	}
	if strings.HasPrefix(name, "-") {
		return core.ErrValidation("INVALID_BRANCH", "branch name must not start with '-'")
	}
	if strings.ContainsAny(name, " \t\n\r") {
		return core.ErrValidation("INVALID_BRANCH", "branch name must not contain whitespace")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "@{") || strings.Contains(name, "//") {
		return core.ErrValidation("INVALID_BRANCH", "branch name contains forbidden sequence")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".") || strings.HasSuffix(name, ".lock") {
		return core.ErrValidation("INVALID_BRANCH", "branch name has forbidden prefix/suffix")
	}
	for _, r := range name {
		switch r {
		case '~', '^', ':', '?', '*', '[', '\\':
			return core.ErrValidation("INVALID_BRANCH", fmt.Sprintf("branch name contains forbidden character: %q", r))
		}
		if r < 0x20 || r == 0x7f {
			return core.ErrValidation("INVALID_BRANCH", "branch name contains control character")
		}
	}
	if name == "@" {
		return core.ErrValidation("INVALID_BRANCH", "branch name '@' is not allowed")
	}
	return nil
}

func validateGitRev(rev string) error {
	if err := validateNoNul("rev", rev); err != nil {
		return err
	}
	if strings.HasPrefix(rev, "-") {
		return core.ErrValidation("INVALID_REV", "rev must not start with '-'")
	}
	return nil
}

func validateGitMessage(msg string) error {
	if err := validateNoNul("message", msg); err != nil {
		return err
	}
	if msg == "" {
		return core.ErrValidation("INVALID_MESSAGE", "message must not be empty")
	}
	return nil
}

func validateNoNul(field, value string) error {
	if strings.IndexByte(value, 0) >= 0 {
		return core.ErrValidation("INVALID_INPUT", fmt.Sprintf("%s contains NUL byte", field))
	}
	return nil
}
