package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "unset"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of locshare",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "locshare version %s\n", Version)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
