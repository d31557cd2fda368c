package cli

import (
	"errors"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with field path",
			err:  NewConfigError("budget.daily_limit", "must be greater than zero"),
			want: "configuration budget.daily_limit: must be greater than zero",
		},
		{
			name: "with nested field path",
			err:  NewConfigError("ledger.archive.path", "path cannot be empty when archive is enabled"),
			want: "configuration ledger.archive.path: path cannot be empty when archive is enabled",
		},
		{
			name: "without field path",
			err:  NewConfigError("", "failed to load config: file not found"),
			want: "configuration: failed to load config: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandErrorMessage(t *testing.T) {
	err := NewCommandError("history", errors.New("ledger archive is disabled"))

	want := "governor history: ledger archive is disabled"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCommandErrorWrapsCause(t *testing.T) {
	cause := errors.New("ledger file locked")
	err := NewCommandError("reset", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() = false, want the cause to unwrap")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("errors.As() = false, want *CommandError")
	}
	if cmdErr.Command != "reset" {
		t.Errorf("Command = %q, want reset", cmdErr.Command)
	}
}
