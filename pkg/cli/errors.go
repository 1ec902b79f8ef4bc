package cli

import (
	"errors"
	"fmt"
)

// Process exit codes used by the verity command.
const (
	ExitOK      = 0 // command succeeded, every subject valid
	ExitError   = 1 // command failed
	ExitInvalid = 2 // command ran, at least one subject or rule file is invalid
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
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

// ExitCodeError carries a specific process exit code. Its message has
// already been reported to the user when Silent is set.
type ExitCodeError struct {
	Code   int
	Err    error
	Silent bool
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// NewInvalidError reports that validation ran and found problems. The
// problems have already been printed, so the error is silent.
func NewInvalidError(command string, count int) *ExitCodeError {
	return &ExitCodeError{
		Code:   ExitInvalid,
		Err:    NewCommandError(command, fmt.Errorf("%d invalid", count)),
		Silent: true,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitError
}

// IsSilent reports whether the error has already been shown to the user.
func IsSilent(err error) bool {
	var exitErr *ExitCodeError
	return errors.As(err, &exitErr) && exitErr.Silent
}
