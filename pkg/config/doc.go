// Package config provides configuration loading, validation, and hot
// reload for the budget governor.
//
// Configuration is read from a YAML file, filled in with defaults, then
// overridden by ATHENA_* environment variables. The final configuration
// is validated before use; an invalid configuration is a startup error.
//
// # Sections
//
//   - budget: daily limit, escalation thresholds, essential operations
//   - ledger: active ledger file and archive database
//   - memory: escalation event sink backend
//   - feeds: external cost feed endpoints and polling cadence
//   - reset: scheduled period reset
//   - telemetry: logging and metrics
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("governor.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A process-wide singleton is available through Initialize and GetConfig
// for code paths that cannot take an injected Config. Prefer injection.
package config
