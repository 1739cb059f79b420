package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownSetting indicates a key that is not part of the settings schema.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrNotInitialized indicates the store was used before Initialize succeeded.
	ErrNotInitialized = errors.New("settings store not initialized")

	// ErrDisposed indicates the store has been disposed.
	ErrDisposed = errors.New("settings store disposed")

	// Provider Errors.

	// ErrProviderNotFound indicates a provider id missing from the provider list.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrBaseURLNotEditable indicates the provider does not allow base URL edits.
	ErrBaseURLNotEditable = errors.New("provider does not allow editing the base URL")

	// ErrLLMUnavailable indicates no LLM service could be created for a provider.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrRateLimited indicates a local rate limit rejected the request.
	ErrRateLimited = errors.New("rate limited")
)

// TransportError reports that the backend boundary was unreachable or
// returned something that could not be interpreted.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DomainError is a rejection reported by the backend. The message is shown
// to the user verbatim.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError formats a DomainError.
func NewDomainError(format string, args ...any) *DomainError {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

// InitError reports that the initial settings or defaults fetch failed.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing settings: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// AsBoundaryError classifies an error returned across the backend boundary.
// Domain rejections and schema errors pass through; anything else is
// wrapped as a TransportError for op.
func AsBoundaryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProviderNotFound) || errors.Is(err, ErrBaseURLNotEditable) ||
		errors.Is(err, ErrUnknownSetting) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
