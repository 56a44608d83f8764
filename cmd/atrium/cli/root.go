package cli

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	noColor    bool
	quiet      bool
	projectDir string

	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "atrium",
	Short: "Task orchestrator: schedules and executes DAGs of agent tasks",
	Long: `atrium loads a graph of tasks from phase directories, schedules them
into dependency-respecting waves, and drives an AI agent through each task
in an isolated git worktree, persisting progress so a crash or interruption
can be resumed from exactly where it left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records build metadata shown by `atrium version`.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .atrium/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", "",
		"project directory to operate on (default: current directory)")
}
