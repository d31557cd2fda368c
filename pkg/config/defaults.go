package config

import "time"

// Default values for configuration fields.
const (
	// Budget defaults
	DefaultDailyLimit = 50.0

	// Ledger defaults
	DefaultLedgerPath         = "data/cost_ledger.json"
	DefaultLedgerWriteTimeout = 5 * time.Second
	DefaultArchiveEnabled     = true
	DefaultArchivePath        = "data/ledger_archive.db"

	// Memory defaults
	DefaultMemoryBackend = "memory"
	DefaultMemoryPath    = "data/memories.db"
	DefaultMemoryUserID  = "athena"

	// Feed defaults
	DefaultFeedPollInterval = time.Minute
	DefaultFeedTimeout      = 10 * time.Second

	// Reset defaults
	DefaultResetEnabled  = true
	DefaultResetSchedule = "0 0 * * *"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9105"
	DefaultMetricsPath          = "/metrics"
)

// DefaultThresholds returns the standard escalation ladder.
func DefaultThresholds() []ThresholdConfig {
	return []ThresholdConfig{
		{Fraction: 0.5, Level: "alert"},
		{Fraction: 0.8, Level: "reduced_frequency"},
		{Fraction: 1.0, Level: "emergency"},
		{Fraction: 1.2, Level: "shutdown"},
	}
}

// DefaultConfig returns a fully populated configuration with every field
// at its default value. LoadConfig unmarshals the YAML document over this
// so that absent boolean fields keep their enabled-by-default values.
func DefaultConfig() *Config {
	return &Config{
		Budget: BudgetConfig{
			DailyLimit: DefaultDailyLimit,
			Thresholds: DefaultThresholds(),
		},
		Ledger: LedgerConfig{
			Path:         DefaultLedgerPath,
			WriteTimeout: DefaultLedgerWriteTimeout,
			Archive: ArchiveConfig{
				Enabled: DefaultArchiveEnabled,
				Path:    DefaultArchivePath,
			},
		},
		Memory: MemoryConfig{
			Backend: DefaultMemoryBackend,
			Path:    DefaultMemoryPath,
			UserID:  DefaultMemoryUserID,
		},
		Reset: ResetConfig{
			Enabled:  DefaultResetEnabled,
			Schedule: DefaultResetSchedule,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLoggingLevel,
				Format: DefaultLoggingFormat,
			},
			Metrics: MetricsConfig{
				Enabled:       DefaultMetricsEnabled,
				ListenAddress: DefaultMetricsListenAddress,
				Path:          DefaultMetricsPath,
			},
		},
	}
}

// ApplyDefaults applies default values to any fields with zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Budget defaults
	if cfg.Budget.DailyLimit == 0 {
		cfg.Budget.DailyLimit = DefaultDailyLimit
	}
	if len(cfg.Budget.Thresholds) == 0 {
		cfg.Budget.Thresholds = DefaultThresholds()
	}

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.WriteTimeout == 0 {
		cfg.Ledger.WriteTimeout = DefaultLedgerWriteTimeout
	}
	if cfg.Ledger.Archive.Path == "" {
		cfg.Ledger.Archive.Path = DefaultArchivePath
	}

	// Memory defaults
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = DefaultMemoryBackend
	}
	if cfg.Memory.Path == "" {
		cfg.Memory.Path = DefaultMemoryPath
	}
	if cfg.Memory.UserID == "" {
		cfg.Memory.UserID = DefaultMemoryUserID
	}

	// Feed defaults apply per entry
	for i := range cfg.Feeds {
		if cfg.Feeds[i].PollInterval == 0 {
			cfg.Feeds[i].PollInterval = DefaultFeedPollInterval
		}
		if cfg.Feeds[i].Timeout == 0 {
			cfg.Feeds[i].Timeout = DefaultFeedTimeout
		}
	}

	// Reset defaults
	if cfg.Reset.Schedule == "" {
		cfg.Reset.Schedule = DefaultResetSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
