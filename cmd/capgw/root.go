package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "capgw",
	Short: "Capgw - authenticated gateway for the Capital.com trading API",
	Long: `Capgw is a local HTTP gateway that fronts the Capital.com trading API.

It owns the platform session lifecycle so callers never handle
credentials or session tokens:
  - Lazy login and reactive session renewal on expiry
  - Demo/live environment switching with token isolation
  - A generic relay for every supported endpoint family
  - Audit trail, metrics, and tracing around each upstream call`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
