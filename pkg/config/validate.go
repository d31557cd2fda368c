package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"athena-ops/governor/pkg/ledger"
	"athena-ops/governor/pkg/policy"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "budget.daily_limit").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access
// to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. All validation errors
// are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBudget(&cfg.Budget)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateMemory(&cfg.Memory)...)
	errs = append(errs, validateFeeds(cfg.Feeds)...)
	errs = append(errs, validateReset(&cfg.Reset)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateBudget validates the budget policy section.
func validateBudget(cfg *BudgetConfig) []FieldError {
	var errs []FieldError

	if cfg.DailyLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "budget.daily_limit",
			Message: fmt.Sprintf("daily limit must be positive, got %.4f", cfg.DailyLimit),
		})
	}

	if len(cfg.Thresholds) == 0 {
		errs = append(errs, FieldError{
			Field:   "budget.thresholds",
			Message: "at least one threshold is required",
		})
	}
	for i, t := range cfg.Thresholds {
		if t.Fraction <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budget.thresholds[%d].fraction", i),
				Message: fmt.Sprintf("fraction must be positive, got %.4f", t.Fraction),
			})
		}
		if level, err := policy.ParseLevel(t.Level); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budget.thresholds[%d].level", i),
				Message: fmt.Sprintf("unknown escalation level %q", t.Level),
			})
		} else if level == policy.LevelNormal {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budget.thresholds[%d].level", i),
				Message: "normal is not a threshold level",
			})
		}
	}

	for i, op := range cfg.EssentialOperations {
		if !ledger.ValidOperationKind(ledger.OperationKind(op)) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("budget.essential_operations[%d]", i),
				Message: fmt.Sprintf("unknown operation kind %q", op),
			})
		}
	}

	return errs
}

// validateLedger validates ledger persistence settings.
func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.path",
			Message: "ledger path is required",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}
	if cfg.Archive.Enabled && cfg.Archive.Path == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.archive.path",
			Message: "archive path is required when archive is enabled",
		})
	}

	return errs
}

// validateMemory validates the memory sink section.
func validateMemory(cfg *MemoryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "memory.backend",
			Message: fmt.Sprintf("backend must be one of: memory, sqlite; got %q", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "memory.path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.UserID == "" {
		errs = append(errs, FieldError{
			Field:   "memory.user_id",
			Message: "user id is required",
		})
	}

	return errs
}

// validateFeeds validates the cost feed entries.
func validateFeeds(feeds []FeedConfig) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(feeds))
	for i, f := range feeds {
		if f.Name == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("feeds[%d].name", i),
				Message: "feed name is required",
			})
		} else if seen[f.Name] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("feeds[%d].name", i),
				Message: fmt.Sprintf("duplicate feed name %q", f.Name),
			})
		}
		seen[f.Name] = true

		if f.URL == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("feeds[%d].url", i),
				Message: "feed url is required",
			})
		} else if u, err := url.Parse(f.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("feeds[%d].url", i),
				Message: fmt.Sprintf("feed url must be a valid http(s) URL, got %q", f.URL),
			})
		}

		if f.PollInterval < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("feeds[%d].poll_interval", i),
				Message: "poll interval must be non-negative",
			})
		}
		if f.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("feeds[%d].timeout", i),
				Message: "timeout must be non-negative",
			})
		}
	}

	return errs
}

// validateReset validates the scheduled reset section.
func validateReset(cfg *ResetConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled {
		if cfg.Schedule == "" {
			errs = append(errs, FieldError{
				Field:   "reset.schedule",
				Message: "schedule is required when scheduled reset is enabled",
			})
		} else if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "reset.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
			})
		}
	}

	return errs
}

// validateTelemetry validates the telemetry section.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("level must be one of: debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("format must be one of: json, text; got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: fmt.Sprintf("path must start with /, got %q", cfg.Metrics.Path),
			})
		}
	}

	return errs
}
