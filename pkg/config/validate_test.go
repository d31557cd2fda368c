package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate() error = %v for default config, want nil", err)
	}
}

func TestValidateBudget(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "zero daily limit",
			mutate:    func(c *Config) { c.Budget.DailyLimit = 0 },
			wantField: "budget.daily_limit",
		},
		{
			name:      "negative daily limit",
			mutate:    func(c *Config) { c.Budget.DailyLimit = -30 },
			wantField: "budget.daily_limit",
		},
		{
			name:      "no thresholds",
			mutate:    func(c *Config) { c.Budget.Thresholds = nil },
			wantField: "budget.thresholds",
		},
		{
			name: "non-positive fraction",
			mutate: func(c *Config) {
				c.Budget.Thresholds = []ThresholdConfig{{Fraction: 0, Level: "alert"}}
			},
			wantField: "budget.thresholds[0].fraction",
		},
		{
			name: "unknown level",
			mutate: func(c *Config) {
				c.Budget.Thresholds = []ThresholdConfig{{Fraction: 0.5, Level: "panic"}}
			},
			wantField: "budget.thresholds[0].level",
		},
		{
			name: "normal as threshold level",
			mutate: func(c *Config) {
				c.Budget.Thresholds = []ThresholdConfig{{Fraction: 0.5, Level: "normal"}}
			},
			wantField: "budget.thresholds[0].level",
		},
		{
			name: "unknown essential operation",
			mutate: func(c *Config) {
				c.Budget.EssentialOperations = []string{"time_travel"}
			},
			wantField: "budget.essential_operations[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty ledger path",
			mutate:    func(c *Config) { c.Ledger.Path = "" },
			wantField: "ledger.path",
		},
		{
			name: "archive enabled without path",
			mutate: func(c *Config) {
				c.Ledger.Archive.Enabled = true
				c.Ledger.Archive.Path = ""
			},
			wantField: "ledger.archive.path",
		},
		{
			name:      "unknown memory backend",
			mutate:    func(c *Config) { c.Memory.Backend = "redis" },
			wantField: "memory.backend",
		},
		{
			name: "sqlite backend without path",
			mutate: func(c *Config) {
				c.Memory.Backend = "sqlite"
				c.Memory.Path = ""
			},
			wantField: "memory.path",
		},
		{
			name:      "empty user id",
			mutate:    func(c *Config) { c.Memory.UserID = "" },
			wantField: "memory.user_id",
		},
		{
			name: "feed without name",
			mutate: func(c *Config) {
				c.Feeds = []FeedConfig{{URL: "http://localhost:9200/costs"}}
			},
			wantField: "feeds[0].name",
		},
		{
			name: "feed with bad url",
			mutate: func(c *Config) {
				c.Feeds = []FeedConfig{{Name: "billing", URL: "not-a-url"}}
			},
			wantField: "feeds[0].url",
		},
		{
			name: "duplicate feed names",
			mutate: func(c *Config) {
				c.Feeds = []FeedConfig{
					{Name: "billing", URL: "http://a:1/x"},
					{Name: "billing", URL: "http://b:1/y"},
				}
			},
			wantField: "feeds[1].name",
		},
		{
			name: "invalid reset schedule",
			mutate: func(c *Config) {
				c.Reset.Enabled = true
				c.Reset.Schedule = "whenever"
			},
			wantField: "reset.schedule",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "unknown log format",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "logfmt" },
			wantField: "telemetry.logging.format",
		},
		{
			name: "metrics path without slash",
			mutate: func(c *Config) {
				c.Telemetry.Metrics.Enabled = true
				c.Telemetry.Metrics.Path = "metrics"
			},
			wantField: "telemetry.metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidateDisabledSectionsSkipped(t *testing.T) {
	cfg := validConfig()
	cfg.Reset.Enabled = false
	cfg.Reset.Schedule = "not a cron expression"
	cfg.Telemetry.Metrics.Enabled = false
	cfg.Telemetry.Metrics.ListenAddress = ""

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v, want disabled sections ignored", err)
	}
}

func TestValidationErrorAggregates(t *testing.T) {
	cfg := validConfig()
	cfg.Budget.DailyLimit = -1
	cfg.Ledger.Path = ""
	cfg.Memory.UserID = ""

	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("Validate() error type = %T, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("error count = %d, want 3", len(verr.Errors))
	}
	if !strings.Contains(verr.Error(), "3 errors") {
		t.Errorf("Error() = %q, want aggregate message", verr.Error())
	}
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Validate() error = nil, want error on %s", field)
	}
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("Validate() error type = %T, want ValidationError", err)
	}
	for _, fe := range verr.Errors {
		if fe.Field == field {
			return
		}
	}
	t.Errorf("Validate() errors %v, want one on field %s", verr.Errors, field)
}
