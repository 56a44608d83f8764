// Command atrium is the CLI entrypoint for the task orchestrator: it wires
// the task loader, scheduler, agent engine, worktree manager, session
// store, and hook runner into the run/resume/plan/status/doctor commands.
package main

import (
	"fmt"
	"os"

	"github.com/atrium-run/atrium/cmd/atrium/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
