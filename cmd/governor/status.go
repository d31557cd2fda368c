package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"athena-ops/governor/pkg/cli"
	"athena-ops/governor/pkg/config"
	"athena-ops/governor/pkg/governor"
	"athena-ops/governor/pkg/ledger"
)

var statusFlags struct {
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current budget status",
	Long: `Show the current budget status from the persisted ledger.

Reads the ledger file directly, so it works whether or not the governor
process is running. The reported level is derived from the persisted
totals and mode flags.

Examples:
  # Human-readable status
  governor status

  # Machine-readable status
  governor status --output json`,
	RunE: showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format (text, json)")
}

func showStatus(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	store, err := ledger.NewFileStore(ledger.FileStoreConfig{
		Path:         cfg.Ledger.Path,
		WriteTimeout: cfg.Ledger.WriteTimeout,
	})
	if err != nil {
		return cli.NewCommandError("status", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, ok, err := store.Load(ctx)
	if err != nil {
		return cli.NewCommandError("status", err)
	}
	if !ok {
		fmt.Printf("No ledger found at %s (governor has not run yet)\n", cfg.Ledger.Path)
		return nil
	}

	pol, err := cfg.Budget.PolicyConfig()
	if err != nil {
		return cli.NewCommandError("status", err)
	}
	st := governor.StatusFromSnapshot(snap, pol, time.Now())

	if cli.OutputFormat(statusFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, st)
	}
	printStatus(st)
	return nil
}

func printStatus(st governor.Status) {
	fmt.Printf("Period:       %s\n", st.PeriodID)
	fmt.Printf("Level:        %s\n", st.Level)
	fmt.Printf("Spend:        $%.2f of $%.2f (%.1f%%)\n",
		st.TotalCost, st.DailyLimit, st.UsageRatio*100)
	fmt.Printf("Remaining:    $%.2f\n", st.Remaining)
	if st.SpendRateKnown {
		fmt.Printf("Projection:   limit reached in %.1f days at current rate\n", st.DaysUntilLimit)
	}

	fmt.Println("\nServices:")
	for _, svc := range ledger.Services() {
		if cost := st.ServiceCosts[svc]; cost > 0 {
			fmt.Printf("  %-20s $%.4f\n", string(svc), cost)
		}
	}

	fmt.Println("\nOperations:")
	for _, kind := range ledger.OperationKinds() {
		if count := st.OperationCounts[kind]; count > 0 {
			fmt.Printf("  %-20s %d\n", string(kind), count)
		}
	}

	if st.AlertsTriggered > 0 {
		fmt.Printf("\nAlerts this period: %d\n", st.AlertsTriggered)
	}
	if st.ReducedFrequency || st.EmergencyMode || st.ShutdownTriggered {
		fmt.Printf("Flags: reduced_frequency=%v emergency=%v shutdown=%v\n",
			st.ReducedFrequency, st.EmergencyMode, st.ShutdownTriggered)
	}
}
