package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/orchestrate"
)

var planCmd = &cobra.Command{
	Use:   "plan <phase>",
	Short: "Print the wave schedule for a phase without executing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	phase := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	loader := newTaskLoader(cfg, logger)

	tasks, err := loader.LoadTasks(phase)
	if err != nil {
		return fmt.Errorf("loading phase %s: %w", phase, err)
	}
	if len(tasks) == 0 {
		return fmt.Errorf("phase %s has no tasks", phase)
	}

	waves, err := orchestrate.Plan(tasks)
	if err != nil {
		return fmt.Errorf("planning phase %s: %w", phase, err)
	}

	md := renderPlanMarkdown(phase, waves)

	if quiet || noColor {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func renderPlanMarkdown(phase string, waves [][]*core.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan: %s\n\n%d wave(s), %d task(s) total\n\n", phase, len(waves), countTasks(waves))
	for i, wave := range waves {
		fmt.Fprintf(&b, "## Wave %d\n\n", i+1)
		for _, t := range wave {
			fmt.Fprintf(&b, "- **%s** %s (depends on: %s)\n", t.ID, t.Name, depsList(t))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func countTasks(waves [][]*core.Task) int {
	n := 0
	for _, w := range waves {
		n += len(w)
	}
	return n
}

func depsList(t *core.Task) string {
	if len(t.Dependencies) == 0 {
		return "none"
	}
	parts := make([]string, len(t.Dependencies))
	for i, d := range t.Dependencies {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}
