// Package errors defines error types used across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions.
var (
	// ErrMissingCredential indicates the Perplexity API key is not configured.
	// The pipeline refuses to start while this holds, before any network call.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrNoPriceHistory indicates the market data source returned no usable bars.
	ErrNoPriceHistory = errors.New("no price history")

	// ErrEmptyCompletion indicates the LLM returned a response with no choices.
	ErrEmptyCompletion = errors.New("empty completion response")

	// ErrSessionNotFound indicates the requested session does not exist in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfigInvalid indicates the configuration failed validation.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrHubClosed indicates an operation on a stopped event hub.
	ErrHubClosed = errors.New("event hub is closed")
)

// DataError represents a market data failure. The pipeline absorbs these
// and continues with a placeholder summary instead of halting.
type DataError struct {
	Symbol  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market data error for %s: %s: %v", e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("market data error for %s: %s", e.Symbol, e.Message)
}

// Unwrap returns the underlying error.
func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(symbol, message string, err error) *DataError {
	return &DataError{Symbol: symbol, Message: message, Err: err}
}

// CompletionError represents an LLM completion failure. These halt the
// pipeline because downstream stages depend on the missing text.
type CompletionError struct {
	Stage string
	Model string
	Err   error
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed in %s stage (model %s): %v", e.Stage, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// NewCompletionError creates a new CompletionError.
func NewCompletionError(stage, model string, err error) *CompletionError {
	return &CompletionError{Stage: stage, Model: model, Err: err}
}

// ValidationError represents an invalid input value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreError represents a persistence failure.
type StoreError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation string, err error) *StoreError {
	return &StoreError{Operation: operation, Err: err}
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}
