package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/store"
	"github.com/atrium-run/atrium/internal/watch"
)

var (
	statusTaskQuery string
	statusWatch     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session's progress, or watch it live",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusTaskQuery, "task", "", "fuzzy-match a task id/name in the active session")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "keep printing status as the session store file changes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	project := projectName(wd)

	sessStore, err := store.OpenBackend(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer func() { _ = sessStore.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !statusWatch {
		return printStatus(ctx, cmd, sessStore, project)
	}

	fw, err := watch.New(cfg.State.Path, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("watching state file: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := printStatus(ctx, cmd, sessStore, project); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	for range fw.Changes(ctx) {
		if err := printStatus(ctx, cmd, sessStore, project); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}
	return nil
}

func printStatus(ctx context.Context, cmd *cobra.Command, s core.SessionStore, project string) error {
	sess, err := s.GetActive(ctx, project)
	if err != nil {
		return fmt.Errorf("no active session for %s: %w", project, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s  phase %s  pending=%d completed=%d failed=%d\n",
		sess.ID, sess.Phase, len(sess.PendingTasks), len(sess.CompletedTasks), len(sess.FailedTasks))
	if sess.CurrentTask != nil {
		fmt.Fprintf(out, "in progress: %s\n", *sess.CurrentTask)
	}

	if statusTaskQuery == "" {
		return nil
	}
	all := append(append(append([]core.TaskID{}, sess.PendingTasks...), sess.CompletedTasks...), sess.FailedTasks...)
	names := make([]string, len(all))
	for i, id := range all {
		names[i] = string(id)
	}
	matches := fuzzy.Find(statusTaskQuery, names)
	if len(matches) == 0 {
		fmt.Fprintf(out, "no task matches %q\n", statusTaskQuery)
		return nil
	}
	fmt.Fprintf(out, "matches for %q:\n", statusTaskQuery)
	for _, m := range matches {
		fmt.Fprintf(out, "  %s\n", m.Str)
	}
	return nil
}
