package config

import "time"

// Config is the root configuration structure for the budget governor.
// It contains all configuration sections for budget policy, ledger
// persistence, the memory sink, cost feeds, scheduled resets, and
// telemetry.
type Config struct {
	// Budget contains the spending policy: daily limit, escalation
	// thresholds, and the operations admitted during emergency mode.
	Budget BudgetConfig `yaml:"budget"`

	// Ledger contains persistence settings for the active period ledger
	// and the historical archive.
	Ledger LedgerConfig `yaml:"ledger"`

	// Memory contains configuration for the memory sink that receives
	// escalation and reset events.
	Memory MemoryConfig `yaml:"memory"`

	// Feeds lists the external cost feed endpoints to poll.
	Feeds []FeedConfig `yaml:"feeds"`

	// Reset contains the scheduled period reset settings.
	Reset ResetConfig `yaml:"reset"`

	// Telemetry contains observability configuration: logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BudgetConfig contains the spending policy.
type BudgetConfig struct {
	// DailyLimit is the spending ceiling for one tracking period, in
	// USD. Must be positive.
	// Default: 50.0
	DailyLimit float64 `yaml:"daily_limit"`

	// Thresholds maps fractions of the daily limit to escalation
	// levels. When empty, the standard ladder is applied:
	// 0.5 alert, 0.8 reduced_frequency, 1.0 emergency, 1.2 shutdown.
	Thresholds []ThresholdConfig `yaml:"thresholds"`

	// EssentialOperations lists the operation kinds still admitted
	// during emergency mode (e.g. "memory_operations"). Everything
	// else is denied until the period resets.
	EssentialOperations []string `yaml:"essential_operations"`
}

// ThresholdConfig binds a limit fraction to an escalation level.
type ThresholdConfig struct {
	// Fraction is the spend ratio at which Level applies. 1.0 is the
	// full daily limit; values above 1.0 describe overspend tolerance.
	Fraction float64 `yaml:"fraction"`

	// Level is the escalation level name: "alert", "reduced_frequency",
	// "emergency", or "shutdown".
	Level string `yaml:"level"`
}

// LedgerConfig contains ledger persistence settings.
type LedgerConfig struct {
	// Path is the location of the active ledger JSON file.
	// Default: "data/cost_ledger.json"
	Path string `yaml:"path"`

	// WriteTimeout bounds each persistence write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Archive contains settings for the historical period archive.
	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig contains settings for the period ledger archive.
type ArchiveConfig struct {
	// Enabled controls whether superseded period ledgers are retained
	// in a SQLite database.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the location of the archive database.
	// Default: "data/ledger_archive.db"
	Path string `yaml:"path"`
}

// MemoryConfig contains configuration for the memory sink.
type MemoryConfig struct {
	// Backend selects the sink implementation.
	// Options: "memory" (in-process, non-durable), "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the location of the sink database when Backend is
	// "sqlite".
	// Default: "data/memories.db"
	Path string `yaml:"path"`

	// UserID scopes events written by the governor.
	// Default: "athena"
	UserID string `yaml:"user_id"`
}

// FeedConfig contains configuration for one external cost feed.
type FeedConfig struct {
	// Name identifies the feed in logs and errors.
	Name string `yaml:"name"`

	// URL is the HTTP endpoint returning cost samples.
	URL string `yaml:"url"`

	// PollInterval is how often the feed is polled.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each fetch.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// ResetConfig contains the scheduled period reset settings.
type ResetConfig struct {
	// Enabled controls whether the reset scheduler runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a standard cron expression for when resets run.
	// Default: "0 0 * * *" (daily at midnight)
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP server.
	// Default: "127.0.0.1:9105"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path the metrics are exposed on.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
