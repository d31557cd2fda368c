package cli

import "fmt"

// ConfigError reports a problem with the governor configuration,
// optionally scoped to a dotted field path such as "budget.daily_limit".
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Message)
}

// CommandError wraps a failure from a governor subcommand so the CLI
// reports which command failed while keeping the cause available to
// errors.Is and errors.As.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("governor %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError for the given field path.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError wraps err as a failure of the named subcommand.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
