package config

import (
	"fmt"
	"sync"
)

var (
	current  *Config
	mu       sync.RWMutex
	loadOnce sync.Once
)

// Initialize loads the governor configuration from path, applies the
// ATHENA_* environment overrides, and installs the result as the
// process-wide instance. Only the first call loads anything; later
// calls are no-ops, so every subcommand can call it unconditionally.
func Initialize(path string) error {
	var initErr error

	loadOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		mu.Lock()
		current = cfg
		mu.Unlock()
	})

	return initErr
}

// GetConfig returns the installed configuration, or nil before a
// successful Initialize.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetConfig replaces the installed configuration. Tests use this to
// inject a Config without touching the filesystem.
func SetConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

// ReloadConfig re-reads the configuration from path. The running
// configuration is swapped only after the new document loads and
// validates, so a broken edit leaves the governor on its current
// policy.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("reload configuration: %w", err)
	}

	mu.Lock()
	current = cfg
	mu.Unlock()

	return nil
}

// MustGetConfig is GetConfig for code paths that run strictly after
// startup; it panics if Initialize has not succeeded.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
