package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	// ErrProvider marks a single failed stats query. The field degrades, the tick continues.
	ErrProvider = "PROVIDER"
	// ErrProviderInit marks a stats subsystem that cannot be reached at all.
	ErrProviderInit = "PROVIDER_INIT"
	// ErrRender marks a failed terminal write.
	ErrRender = "RENDER"
	// ErrConfig marks invalid configuration.
	ErrConfig = "CONFIG"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Provider wraps a failed stats query for the named field.
func Provider(field string, err error) *Error {
	return &Error{
		Code:    ErrProvider,
		Message: fmt.Sprintf("Failed to read %s", field),
		Cause:   err,
	}
}

// ProviderInit wraps a failure to reach the stats subsystem.
func ProviderInit(err error) *Error {
	return &Error{
		Code:       ErrProviderInit,
		Message:    "Cannot reach system statistics",
		Suggestion: "Check that /proc (or the platform equivalent) is readable by this user",
		Cause:      err,
	}
}

// Render wraps a failed terminal write.
func Render(err error) *Error {
	return &Error{
		Code:       ErrRender,
		Message:    "Failed to draw to the terminal",
		Suggestion: "Make sure the output is still attached to a terminal, or use 'ssm snapshot' for piped output",
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var ssmErr *Error
	if errors.As(err, &ssmErr) {
		return ssmErr.Code == code
	}
	return false
}

// IsFatal reports whether err must stop the dashboard.
// Per-field provider failures are the only recoverable kind.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsCode(err, ErrProvider)
}
