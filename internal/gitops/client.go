// Package gitops implements the WorktreeManager port: read-only queries
// (status, diff, branch listing) go through go-git directly against the
// on-disk repository; worktree/branch/commit/push lifecycle operations,
// which go-git does not model the way git's CLI does, shell out to the
// system git binary.
package gitops

import (
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// repoView wraps a go-git repository opened at a worktree path, used for
// the read-only operations of the WorktreeManager port.
type repoView struct {
	repo *git.Repository
}

func openRepoView(path string) (*repoView, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	return &repoView{repo: repo}, nil
}

func (v *repoView) currentBranch() (string, error) {
	head, err := v.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

func (v *repoView) branchExists(name string) (bool, error) {
	_, err := v.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == nil {
		return true, nil
	}
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	return false, err
}

// hasUncommittedChanges reports whether the worktree has staged, unstaged,
// or untracked changes relative to HEAD.
func (v *repoView) hasUncommittedChanges() (bool, error) {
	wt, err := v.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading status: %w", err)
	}
	return !status.IsClean(), nil
}

// changedFiles lists every path go-git's status reports as touched, in a
// stable sorted order.
func (v *repoView) changedFiles() ([]string, error) {
	wt, err := v.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	files := make([]string, 0, len(status))
	for path := range status {
		files = append(files, path)
	}
	return files, nil
}

// diffSummary renders a best-effort textual summary of what changed,
// built from go-git's status codes since go-git does not expose a unified
// text diff the way `git diff` does; callers needing a full patch should
// shell out, which worktree.go does for that case.
func (v *repoView) diffSummary(staged bool) (string, error) {
	wt, err := v.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}

	var b strings.Builder
	for path, s := range status {
		code := s.Worktree
		if staged {
			code = s.Staging
		}
		if code == git.Unmodified {
			continue
		}
		fmt.Fprintf(&b, "%c %s\n", code, path)
	}
	return b.String(), nil
}
