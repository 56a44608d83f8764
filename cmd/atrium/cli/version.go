package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the atrium version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "atrium %s (commit %s, built %s)\n", appVersion, appCommit, appDate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
