package cli

import (
	"errors"
	"fmt"

	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitStorage      = 3
)

// ConfigError reports an unusable configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError wraps the failure of a subcommand.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps err to a process exit code. Invalid arguments and
// configuration exit with 2, storage failures with 3.
func ExitCode(err error) int {
	var (
		cfgErr   *ConfigError
		validErr config.ValidationError
	)
	switch {
	case err == nil:
		return ExitOK
	case growth.IsInvalidInput(err), errors.As(err, &cfgErr), errors.As(err, &validErr):
		return ExitInvalidInput
	case growth.IsStorageUnavailable(err):
		return ExitStorage
	default:
		return ExitFailure
	}
}
