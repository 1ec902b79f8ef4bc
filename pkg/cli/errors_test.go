package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "format",
		Message: "unknown output format",
	}

	expected := "config error in format: unknown output format"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("check", underlyingErr)

	expected := "command check failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantSilent bool
	}{
		{name: "nil", err: nil, wantCode: ExitOK},
		{name: "plain error", err: errors.New("boom"), wantCode: ExitError},
		{name: "command error", err: NewCommandError("lint", errors.New("boom")), wantCode: ExitError},
		{name: "invalid", err: NewInvalidError("check", 3), wantCode: ExitInvalid, wantSilent: true},
		{
			name:       "wrapped invalid",
			err:        fmt.Errorf("outer: %w", NewInvalidError("lint", 1)),
			wantCode:   ExitInvalid,
			wantSilent: true,
		},
		{name: "explicit code", err: &ExitCodeError{Code: 7}, wantCode: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", got, tt.wantCode)
			}
			if got := IsSilent(tt.err); got != tt.wantSilent {
				t.Errorf("IsSilent() = %v, want %v", got, tt.wantSilent)
			}
		})
	}
}

func TestExitCodeErrorMessage(t *testing.T) {
	if got := (&ExitCodeError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewInvalidError("check", 2).Error(); got != "command check failed: 2 invalid" {
		t.Errorf("Error() = %q", got)
	}
}
