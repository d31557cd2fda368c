package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The document is unmarshalled over a fully defaulted configuration, so
// absent fields keep their defaults and explicit values (including false
// booleans) win. The result is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Per-entry defaults (feeds) still need a pass after unmarshalling.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention ATHENA_SECTION_FIELD (e.g.,
// ATHENA_BUDGET_DAILY_LIMIT) and always take precedence over file-based
// configuration.
//
// The loading sequence is:
// 1. Load YAML over defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format
// ATHENA_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Budget overrides
	if val := os.Getenv("ATHENA_BUDGET_DAILY_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.DailyLimit = f
		}
	}

	// Ledger overrides
	if val := os.Getenv("ATHENA_LEDGER_PATH"); val != "" {
		cfg.Ledger.Path = val
	}
	if val := os.Getenv("ATHENA_LEDGER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.WriteTimeout = d
		}
	}
	if val := os.Getenv("ATHENA_LEDGER_ARCHIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Archive.Enabled = b
		}
	}
	if val := os.Getenv("ATHENA_LEDGER_ARCHIVE_PATH"); val != "" {
		cfg.Ledger.Archive.Path = val
	}

	// Memory overrides
	if val := os.Getenv("ATHENA_MEMORY_BACKEND"); val != "" {
		cfg.Memory.Backend = val
	}
	if val := os.Getenv("ATHENA_MEMORY_PATH"); val != "" {
		cfg.Memory.Path = val
	}
	if val := os.Getenv("ATHENA_MEMORY_USER_ID"); val != "" {
		cfg.Memory.UserID = val
	}

	// Reset overrides
	if val := os.Getenv("ATHENA_RESET_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Reset.Enabled = b
		}
	}
	if val := os.Getenv("ATHENA_RESET_SCHEDULE"); val != "" {
		cfg.Reset.Schedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("ATHENA_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ATHENA_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("ATHENA_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("ATHENA_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := os.Getenv("ATHENA_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
