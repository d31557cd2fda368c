package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"athena-ops/governor/pkg/cli"
	"athena-ops/governor/pkg/config"
	"athena-ops/governor/pkg/ledger"
)

var historyFlags struct {
	limit  int
	output string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived budget periods",
	Long: `List archived budget periods from the ledger archive, most recent
first.

Examples:
  # Last 30 periods
  governor history

  # Last week, machine-readable
  governor history --limit 7 --output json`,
	RunE: showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 30, "maximum periods to list")
	historyCmd.Flags().StringVarP(&historyFlags.output, "output", "o", "text", "output format (text, json)")
}

func showHistory(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if !cfg.Ledger.Archive.Enabled {
		return cli.NewConfigError("ledger.archive.enabled", "archive is disabled")
	}

	archive, err := ledger.NewArchiveStore(cfg.Ledger.Archive.Path)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer archive.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snaps, err := archive.List(ctx, historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No archived periods")
		return nil
	}

	if cli.OutputFormat(historyFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, snaps)
	}

	fmt.Printf("%-12s %12s %8s %s\n", "PERIOD", "TOTAL", "ALERTS", "FLAGS")
	for _, snap := range snaps {
		flags := ""
		if snap.ReducedFrequency {
			flags += "R"
		}
		if snap.EmergencyMode {
			flags += "E"
		}
		if snap.ShutdownTriggered {
			flags += "S"
		}
		fmt.Printf("%-12s %12.2f %8d %s\n", snap.PeriodID, snap.TotalCost, len(snap.Alerts), flags)
	}
	return nil
}
