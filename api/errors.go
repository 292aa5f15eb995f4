package api

import (
	"errors"
	"fmt"
)

// Sentinel errors of the harness taxonomy. Typed errors below match them with errors.Is.
var (
	ErrLoad                = errors.New("backend load failed")
	ErrDuplicateDescriptor = errors.New("duplicate benchmark descriptor")
	ErrNoMatch             = errors.New("no matching benchmark")
	ErrBackendCall         = errors.New("backend call failed")
	ErrValidationMismatch  = errors.New("validation mismatch")
	ErrState               = errors.New("invalid state")
)

// LoadError reports a backend module that could not be opened or is incompatible.
type LoadError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%v: %s: %s", ErrLoad, e.Path, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches ErrLoad.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Cause }

// DuplicateDescriptorError reports a registration that would make matching ambiguous.
type DuplicateDescriptorError struct {
	Descriptor BenchmarkDescriptor
	Reason     string
}

func (e *DuplicateDescriptorError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", ErrDuplicateDescriptor, e.Descriptor)
	}
	return fmt.Sprintf("%v: %s: %s", ErrDuplicateDescriptor, e.Descriptor, e.Reason)
}

// Is matches ErrDuplicateDescriptor.
func (e *DuplicateDescriptorError) Is(target error) bool { return target == ErrDuplicateDescriptor }

// NoMatchError reports a request no registered descriptor satisfies.
type NoMatchError struct {
	Request string
	Reason  string
}

func (e *NoMatchError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", ErrNoMatch, e.Request)
	}
	return fmt.Sprintf("%v: %s: %s", ErrNoMatch, e.Request, e.Reason)
}

// Is matches ErrNoMatch.
func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// BackendCallError reports a backend call that returned a non-success code.
type BackendCallError struct {
	Operation   string
	Code        ErrorCode
	Description string
	Descriptor  string
}

func (e *BackendCallError) Error() string {
	msg := fmt.Sprintf("%v: %s returned %d", ErrBackendCall, e.Operation, e.Code)
	if e.Descriptor != "" {
		msg += " (" + e.Descriptor + ")"
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

// Is matches ErrBackendCall.
func (e *BackendCallError) Is(target error) bool { return target == ErrBackendCall }

// ValidationMismatch records a result that differs from the expected output.
type ValidationMismatch struct {
	SampleIndex uint64 `json:"sample_index" yaml:"sample_index"`
	Result      uint64 `json:"result"       yaml:"result"`
	Message     string `json:"message"      yaml:"message"`
}

func (e *ValidationMismatch) Error() string {
	return fmt.Sprintf("%v: sample %d result %d: %s", ErrValidationMismatch, e.SampleIndex, e.Result, e.Message)
}

// Is matches ErrValidationMismatch.
func (e *ValidationMismatch) Is(target error) bool { return target == ErrValidationMismatch }

// StateError reports misuse of a harness API.
type StateError struct {
	Op      string
	State   string
	Message string
}

func (e *StateError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("%v: %s: %s", ErrState, e.Op, e.Message)
	}
	return fmt.Sprintf("%v: %s in state %s: %s", ErrState, e.Op, e.State, e.Message)
}

// Is matches ErrState.
func (e *StateError) Is(target error) bool { return target == ErrState }
