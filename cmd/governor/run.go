package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"athena-ops/governor/pkg/cli"
	"athena-ops/governor/pkg/config"
	"athena-ops/governor/pkg/feed"
	"athena-ops/governor/pkg/governor"
	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/memsink"
)

var runFlags struct {
	logLevel string
	dryRun   bool
	watch    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the budget governor",
	Long: `Start the budget governor with the specified configuration.

The governor resumes (or opens) the ledger for the current tracking
period, polls the configured cost feeds, enforces the escalation ladder,
and resets the period on schedule.

Examples:
  # Start with default config
  governor run

  # Start with custom config
  governor run --config /etc/athena/governor.yaml

  # Reload budget policy when the config file changes
  governor run --watch

  # Validate config without starting
  governor run --dry-run`,
	RunE: runGovernor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload budget policy on config file changes")
}

func runGovernor(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	setupLogging(&cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Athena Governor v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// One signal-bound context drives the pollers, the scheduler, and the
	// metrics server, so SIGINT/SIGTERM stops everything together.
	ctx, stop := cli.ShutdownContext()
	defer stop()

	// Ledger persistence
	store, err := ledger.NewFileStore(ledger.FileStoreConfig{
		Path:         cfg.Ledger.Path,
		WriteTimeout: cfg.Ledger.WriteTimeout,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	var archive *ledger.ArchiveStore
	if cfg.Ledger.Archive.Enabled {
		archive, err = ledger.NewArchiveStore(cfg.Ledger.Archive.Path)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer archive.Close()
	}

	// Memory sink
	sink, closeSink, err := buildSink(&cfg.Memory)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer closeSink()

	// Metrics
	var metrics *governor.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		metrics = governor.NewMetrics(registry)
		startMetricsServer(ctx, &cfg.Telemetry.Metrics, registry)
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n",
			cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	// Governor
	pol, err := cfg.Budget.PolicyConfig()
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	gov, err := governor.New(ctx, governor.Config{
		Policy:              pol,
		EssentialOperations: cfg.Budget.EssentialKinds(),
		MemoryUserID:        cfg.Memory.UserID,
	}, governor.Options{
		Store:   store,
		Archive: archive,
		Sink:    sink,
		Metrics: metrics,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	st := gov.Status()
	fmt.Printf("✓ Ledger ready (period %s, $%.2f of $%.2f, level %s)\n",
		st.PeriodID, st.TotalCost, st.DailyLimit, st.Level)

	// Cost feed pollers
	if err := startPollers(ctx, cfg, gov); err != nil {
		return cli.NewCommandError("run", err)
	}

	// Scheduled period reset
	if cfg.Reset.Enabled {
		sched := governor.NewResetScheduler(gov, cfg.Reset.Schedule)
		if err := sched.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer sched.Stop()
		fmt.Printf("✓ Reset scheduler active (%s)\n", cfg.Reset.Schedule)
	}

	// Config hot reload
	if runFlags.watch {
		if err := startConfigWatcher(ctx, gov); err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Printf("✓ Watching %s for policy changes\n", cfgFile)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()
	stop()
	fmt.Println("\nShutdown signal received, stopping gracefully...")

	// Give the scheduler and pollers a moment to drain.
	time.Sleep(100 * time.Millisecond)
	fmt.Println("✓ Governor stopped")
	return nil
}

// setupLogging installs the process-wide structured logger.
func setupLogging(cfg *config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildSink constructs the configured memory sink. The returned closer is
// a no-op for the in-process backend.
func buildSink(cfg *config.MemoryConfig) (memsink.Sink, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := memsink.NewSQLiteSink(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		return memsink.NewMemorySink(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported memory backend: %s", cfg.Backend)
	}
}

// startPollers launches one poller per configured poll interval, grouping
// feeds that share a cadence.
func startPollers(ctx context.Context, cfg *config.Config, gov *governor.Governor) error {
	byInterval := make(map[time.Duration][]feed.Feed)
	for _, fc := range cfg.Feeds {
		f, err := feed.NewHTTPFeed(feed.HTTPFeedConfig{
			Name:    fc.Name,
			URL:     fc.URL,
			Timeout: fc.Timeout,
		})
		if err != nil {
			return err
		}
		byInterval[fc.PollInterval] = append(byInterval[fc.PollInterval], f)
	}

	for interval, feeds := range byInterval {
		poller := feed.NewPoller(gov, feeds, feed.PollerConfig{Interval: interval})
		go poller.Run(ctx)
	}
	if len(cfg.Feeds) > 0 {
		fmt.Printf("✓ Cost feeds polling (%d feeds)\n", len(cfg.Feeds))
	} else {
		slog.Warn("no cost feeds configured, expecting direct RecordCost callers")
	}
	return nil
}

// startMetricsServer serves the Prometheus registry over HTTP.
func startMetricsServer(ctx context.Context, cfg *config.MetricsConfig, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// startConfigWatcher reloads the budget policy when the config file
// changes. Only the policy section takes effect at runtime; storage and
// feed changes need a restart.
func startConfigWatcher(ctx context.Context, gov *governor.Governor) error {
	watcher, err := config.NewFileWatcher(cfgFile, slog.Default())
	if err != nil {
		return err
	}

	go func() {
		err := watcher.Watch(ctx, func() error {
			if err := config.ReloadConfig(cfgFile); err != nil {
				return err
			}
			next, err := config.GetConfig().Budget.PolicyConfig()
			if err != nil {
				return err
			}
			return gov.UpdatePolicy(ctx, next)
		})
		if err != nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()
	return nil
}
