// Package errors provides the unified error type for the application.
// Every failure crossing a component boundary is classified into one of the
// types below so callers can decide between rejecting input, dropping work,
// or surfacing an internal fault.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypePersistence ErrorType = "PERSISTENCE"
	ErrorTypeComputation ErrorType = "COMPUTATION"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failed operation may succeed on retry.
// Validation and not-found errors never will; persistence and availability
// failures might.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypePersistence || e.Type == ErrorTypeUnavailable
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewPersistence creates a persistence error wrapping the store failure
func NewPersistence(message string, err error) error {
	return &AppError{Type: ErrorTypePersistence, Message: message, Err: err}
}

// NewComputation creates a computation error for failures mid-scoring
func NewComputation(message string, err error) error {
	return &AppError{Type: ErrorTypeComputation, Message: message, Err: err}
}

// NewUnavailable creates an availability error (circuit open, timeout)
func NewUnavailable(message string, err error) error {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context, preserving its type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsPersistence checks if an error is a persistence error
func IsPersistence(err error) bool { return isType(err, ErrorTypePersistence) }

// IsComputation checks if an error is a computation error
func IsComputation(err error) bool { return isType(err, ErrorTypeComputation) }

// IsUnavailable checks if an error is an availability error
func IsUnavailable(err error) bool { return isType(err, ErrorTypeUnavailable) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }
