package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "locshare",
	Short: "Live location sharing agent",
	Long: `locshare publishes this device's position to a location sharing server
every few seconds and shows the positions of everyone else connected to it.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "path to the YAML configuration file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from the configuration")
}
