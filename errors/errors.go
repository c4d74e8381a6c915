// Package errors provides error handling for lexsync.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrAlreadyRunning) {
//	    // handle concurrent run
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Sentinel errors for the sync subsystem.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfiguration indicates required credentials or URLs are absent,
	// or the remote system rejected the configured credentials outright.
	// Not retried automatically.
	ErrConfiguration = New("configuration error")

	// ErrAlreadyRunning indicates a run was requested while a prior run
	// holds the job lock. Not a failure: manual triggers report
	// "not triggered", scheduled triggers skip the tick.
	ErrAlreadyRunning = New("job already running")

	// ErrJobDisabled indicates a run was requested for a job whose
	// persisted configuration has it disabled.
	ErrJobDisabled = New("job disabled")

	// ErrAuthentication indicates the external system rejected credentials
	// after a successful connection. Distinct from ErrConfiguration: the
	// source may have rotated credentials.
	ErrAuthentication = New("authentication rejected")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = New("not found")
)

// RequestError carries the status code and raw body of a non-success
// response from an external system, for diagnostics.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, body)
}

// NewRequestError creates a RequestError from a response status and body.
func NewRequestError(statusCode int, body string) error {
	return WithStack(&RequestError{StatusCode: statusCode, Body: body})
}

// IsConfiguration checks if an error is or wraps ErrConfiguration.
func IsConfiguration(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsAlreadyRunning checks if an error is or wraps ErrAlreadyRunning.
func IsAlreadyRunning(err error) bool {
	return err != nil && Is(err, ErrAlreadyRunning)
}

// IsJobDisabled checks if an error is or wraps ErrJobDisabled.
func IsJobDisabled(err error) bool {
	return err != nil && Is(err, ErrJobDisabled)
}

// IsAuthentication checks if an error is or wraps ErrAuthentication.
func IsAuthentication(err error) bool {
	return err != nil && Is(err, ErrAuthentication)
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// AsRequestError extracts a RequestError from an error chain, if present.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if err != nil && As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
