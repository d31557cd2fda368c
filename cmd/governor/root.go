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
	Use:   "governor",
	Short: "Athena budget governor - cost tracking and spending control",
	Long: `Governor is the budget-aware operational governor for the Athena agent.

It tracks the cost of every external operation the agent performs,
enforces a daily spending limit through a forward-only escalation
ladder, and gates which operations may proceed as spend approaches the
limit:
  - Per-service cost accounting with a durable JSON ledger
  - Threshold-based escalation (alert, reduced frequency, emergency, shutdown)
  - Scheduled daily period resets with archival of closed periods
  - External cost feed polling`,
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
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "governor.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
