package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atrium-run/atrium/internal/core"
)

var resumeModeFlag string

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the active session for this project after a crash or pause",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeModeFlag, "mode", "", "sequential or parallel (default from config)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if resumeModeFlag != "" {
		cfg.Run.Mode = resumeModeFlag
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer installSignalHandler(ctx, cancel, d)()

	loadTasks := func(ids []core.TaskID) ([]*core.Task, error) {
		tasks := make([]*core.Task, 0, len(ids))
		for _, id := range ids {
			t, ok, err := d.loader.LoadTask(string(id))
			if err != nil {
				return nil, fmt.Errorf("loading task %s: %w", id, err)
			}
			if !ok {
				return nil, fmt.Errorf("task %s not found on disk", id)
			}
			tasks = append(tasks, t)
		}
		return tasks, nil
	}

	if err := d.executor.Resume(ctx, d.executor.Project, loadTasks, runMode(cfg.Run.Mode)); err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "project %s: resume complete\n", d.executor.Project)
	return nil
}
