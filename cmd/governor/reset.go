package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"athena-ops/governor/pkg/cli"
	"athena-ops/governor/pkg/config"
	"athena-ops/governor/pkg/governor"
	"athena-ops/governor/pkg/ledger"
)

var resetFlags struct {
	period string
	yes    bool
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force a period reset",
	Long: `Force a period reset: zero the active ledger, clear the escalation
state, and archive the closed period.

Intended for operator intervention (e.g. after raising the daily limit
mid-incident); the scheduled reset handles the normal daily rollover.

Examples:
  # Reset into today's period
  governor reset --yes

  # Reset into an explicit period
  governor reset --period 2025-02-02 --yes`,
	RunE: forceReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringVar(&resetFlags.period, "period", "", "new period id (YYYY-MM-DD, default today)")
	resetCmd.Flags().BoolVarP(&resetFlags.yes, "yes", "y", false, "skip confirmation")
}

func forceReset(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	period := resetFlags.period
	if period == "" {
		period = governor.PeriodID(time.Now())
	}
	if _, err := time.Parse("2006-01-02", period); err != nil {
		return cli.NewConfigError("period", fmt.Sprintf("invalid period %q, want YYYY-MM-DD", period))
	}

	if !resetFlags.yes {
		fmt.Printf("Reset the ledger into period %s? This clears all escalation state. [y/N] ", period)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	store, err := ledger.NewFileStore(ledger.FileStoreConfig{
		Path:         cfg.Ledger.Path,
		WriteTimeout: cfg.Ledger.WriteTimeout,
	})
	if err != nil {
		return cli.NewCommandError("reset", err)
	}

	var archive *ledger.ArchiveStore
	if cfg.Ledger.Archive.Enabled {
		archive, err = ledger.NewArchiveStore(cfg.Ledger.Archive.Path)
		if err != nil {
			return cli.NewCommandError("reset", err)
		}
		defer archive.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pol, err := cfg.Budget.PolicyConfig()
	if err != nil {
		return cli.NewCommandError("reset", err)
	}
	gov, err := governor.New(ctx, governor.Config{
		Policy:       pol,
		MemoryUserID: cfg.Memory.UserID,
	}, governor.Options{
		Store:   store,
		Archive: archive,
	})
	if err != nil {
		return cli.NewCommandError("reset", err)
	}

	prior, err := gov.Reset(ctx, period)
	if err != nil {
		return cli.NewCommandError("reset", err)
	}

	fmt.Printf("✓ Period %s closed at $%.2f (%d alerts)\n",
		prior.PeriodID, prior.TotalCost, len(prior.Alerts))
	fmt.Printf("✓ Period %s opened\n", period)
	return nil
}
