package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/schedule"
)

var (
	runMaxParallel int
	runFast        bool
	runModeFlag    string
)

var runCmd = &cobra.Command{
	Use:   "run <phase>",
	Short: "Load a phase's tasks, schedule them into waves, and execute",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "wave concurrency bound (default from config)")
	runCmd.Flags().BoolVar(&runFast, "fast", false, "skip the lint/test validation step")
	runCmd.Flags().StringVar(&runModeFlag, "mode", "", "sequential or parallel (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	phase := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runMaxParallel > 0 {
		cfg.Run.MaxParallel = runMaxParallel
	}
	if runFast {
		cfg.Run.Fast = true
	}
	if runModeFlag != "" {
		cfg.Run.Mode = runModeFlag
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

	tasks, err := d.loader.LoadTasks(phase)
	if err != nil {
		return fmt.Errorf("loading phase %s: %w", phase, err)
	}
	if len(tasks) == 0 {
		return fmt.Errorf("phase %s has no tasks", phase)
	}

	waves, err := schedule.BuildExecutionWaves(tasks)
	if err != nil {
		return fmt.Errorf("scheduling phase %s: %w", phase, err)
	}

	taskIDs := make([]core.TaskID, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	sess, err := d.store.Create(ctx, d.executor.Project, phase, taskIDs)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	d.logger.Info("starting run", "project", d.executor.Project, "phase", phase, "tasks", len(tasks), "waves", len(waves), "session", sess.ID)

	if err := d.executor.RunWaves(ctx, sess.ID, waves, runMode(cfg.Run.Mode)); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session %s: phase %s complete (%d tasks)\n", sess.ID, phase, len(tasks))
	return nil
}

// installSignalHandler wires SIGINT/SIGTERM into d.control: the first signal
// marks the run cancelled so the next wave boundary stops cleanly instead of
// starting new tasks; a second signal cancels ctx outright, for a caller
// stuck waiting on a long-running agent that won't see the first signal
// until its current task returns. The returned func stops the handler and
// must be deferred by the caller.
func installSignalHandler(ctx context.Context, cancel context.CancelFunc, d *deps) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		d.logger.Info("interrupt received, stopping after in-flight tasks finish (press again to force-cancel)")
		d.control.Cancel()

		select {
		case <-sigCh:
			d.logger.Warn("second interrupt received, forcing cancellation")
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
