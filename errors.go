package winsvc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotService is returned by Run when the process was not started by
	// the service control manager, e.g. from an interactive console.
	// Callers are expected to special-case it and fall back to running in
	// the foreground instead of presenting a raw error.
	ErrNotService = errors.New("winsvc: process is not running as a service")

	// ErrAlreadyRegistered is returned when a service name already has a
	// registration in this process.
	ErrAlreadyRegistered = errors.New("winsvc: service name already registered in this process")

	// ErrEmptyServiceName is returned for registrations and dispatch table
	// entries with an empty name.
	ErrEmptyServiceName = errors.New("winsvc: service name is empty")
)

// RegistrationError wraps a failure to register a control handler with the
// service control manager.
type RegistrationError struct {
	Name string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("winsvc: registering control handler for %q: %v", e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// StatusReportError wraps a failed status report. An undelivered report
// during a pending transition leaves the controller free to assume the
// service hung and kill the process, so report failures are always
// surfaced, never dropped.
type StatusReportError struct {
	Name string
	Err  error
}

func (e *StatusReportError) Error() string {
	return fmt.Sprintf("winsvc: reporting status for %q: %v", e.Name, e.Err)
}

func (e *StatusReportError) Unwrap() error { return e.Err }
