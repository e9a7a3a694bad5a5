package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "fleet-telemetry",
	Short:   "Real time fleet telemetry core",
	Version: version.Version,
}

// Execute runs the root command. It exits the process on failure.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env variables prefixed by FLEETTELEMETRY_ override it)")
}
