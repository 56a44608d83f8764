package agent

import (
	"sort"
	"strings"
)

// FileDiscrepancy describes a mismatch between what an agent claimed to
// change and what the worktree actually shows changed.
type FileDiscrepancy struct {
	ReportedOnly []string // agent said it changed these, git diff disagrees
	ActualOnly   []string // git diff shows these changed, agent never mentioned them
}

// HasDiscrepancy reports whether any mismatch was found.
func (d FileDiscrepancy) HasDiscrepancy() bool {
	return len(d.ReportedOnly) > 0 || len(d.ActualOnly) > 0
}

// CompareFileLists diffs the file list an agent reported in its completion
// payload against the files a git status/diff actually shows changed,
// surfacing both directions of mismatch so a reviewer can catch an agent
// that silently touched files outside its stated scope.
func CompareFileLists(reported, actual []string) FileDiscrepancy {
	reportedSet := toSet(reported)
	actualSet := toSet(actual)

	var disc FileDiscrepancy
	for f := range reportedSet {
		if !actualSet[f] {
			disc.ReportedOnly = append(disc.ReportedOnly, f)
		}
	}
	for f := range actualSet {
		if !reportedSet[f] {
			disc.ActualOnly = append(disc.ActualOnly, f)
		}
	}
	sort.Strings(disc.ReportedOnly)
	sort.Strings(disc.ActualOnly)
	return disc
}

func toSet(files []string) map[string]bool {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[strings.TrimSpace(f)] = true
	}
	return set
}
