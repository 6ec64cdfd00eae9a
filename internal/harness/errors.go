package harness

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes probe failures.
type ErrorCode string

const (
	// ErrCodeMissingCapability indicates the probed name did not resolve.
	// The callback was not invoked.
	ErrCodeMissingCapability ErrorCode = "MISSING_CAPABILITY"

	// ErrCodeCallbackError indicates the callback returned an error or panicked.
	ErrCodeCallbackError ErrorCode = "CALLBACK_ERROR"

	// ErrCodeInternal indicates the unit itself panicked outside the
	// callback (for example inside a Resolver).
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ProbeError describes why a probe failed.
type ProbeError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Name is the descriptor name.
	Name string

	// Message is a human-readable description.
	Message string

	// Err is the callback's error, if any.
	Err error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Name, e.Message)
}

// Unwrap returns the underlying callback error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsMissingCapability returns true if err is a MISSING_CAPABILITY failure.
// Uses errors.As to handle wrapped errors.
func IsMissingCapability(err error) bool {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMissingCapability
	}
	return false
}

// IsCallbackError returns true if err is a CALLBACK_ERROR failure.
func IsCallbackError(err error) bool {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeCallbackError
	}
	return false
}

func newMissingCapabilityError(name string) *ProbeError {
	return &ProbeError{
		Code:    ErrCodeMissingCapability,
		Name:    name,
		Message: "capability not found",
	}
}

func newCallbackError(name string, err error) *ProbeError {
	return &ProbeError{
		Code:    ErrCodeCallbackError,
		Name:    name,
		Message: err.Error(),
		Err:     err,
	}
}

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrAlreadyReported is returned by a second call to AwaitCompletionAndReport.
var ErrAlreadyReported = errors.New("run already reported")

// IncompleteError is returned when a run is abandoned because its context
// ended while units were still active or descriptors were still waiting to
// be dispatched.
type IncompleteError struct {
	Active       int
	Undispatched int
	Err          error
}

func (e *IncompleteError) Error() string {
	if e.Undispatched > 0 {
		return fmt.Sprintf("run incomplete: %d probe(s) still active, %d not dispatched: %v",
			e.Active, e.Undispatched, e.Err)
	}
	return fmt.Sprintf("run incomplete: %d probe(s) still active: %v", e.Active, e.Err)
}

func (e *IncompleteError) Unwrap() error {
	return e.Err
}
