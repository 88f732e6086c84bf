package domain

import "fmt"

// Error types for consistent error handling across the panel.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in a backend call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
	Line    int // CSV line, 0 when not applicable
}

func (e *ErrValidation) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("validation error on line %d, '%s': %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an invalid or missing token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a unique constraint was hit (e.g. duplicate id_client).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrPartialRenewal means the due date was updated but the renewal log
// could not be appended. The customer update is not rolled back.
type ErrPartialRenewal struct {
	CustomerID string
	DueAfter   Date
	Err        error
}

func (e *ErrPartialRenewal) Error() string {
	return fmt.Sprintf("renewal of %s applied (due %s) but log append failed: %v", e.CustomerID, e.DueAfter, e.Err)
}

func (e *ErrPartialRenewal) Unwrap() error {
	return e.Err
}
