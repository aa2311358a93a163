// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category carried by every error returned to callers.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindAuthorization     ErrorKind = "AUTHORIZATION_ERROR"
	KindUpstream          ErrorKind = "UPSTREAM_ERROR"
)

// Sentinels for errors.Is checks; they match any AppError of the same kind.
var (
	ErrValidation        = &AppError{Kind: KindValidation}
	ErrNotFound          = &AppError{Kind: KindNotFound}
	ErrInvalidTransition = &AppError{Kind: KindInvalidTransition}
	ErrAuthorization     = &AppError{Kind: KindAuthorization}
	ErrUpstream          = &AppError{Kind: KindUpstream}
)

const (
	HintSafeToResubmit   = "safe to resubmit"
	HintCheckBeforeRetry = "check payment status before retrying"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Details interface{}
	// Retryable is only ever true for upstream failures.
	Retryable bool
	// Ambiguous marks an upstream failure whose side effect may or may not have happened.
	Ambiguous bool
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Hint tells the caller whether resubmitting is safe.
func (e *AppError) Hint() string {
	if e.Kind != KindUpstream {
		return ""
	}
	if e.Ambiguous {
		return HintCheckBeforeRetry
	}
	return HintSafeToResubmit
}

func NewValidationError(message string, details interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Details: details}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func NewInvalidTransitionError(message string) *AppError {
	return &AppError{Kind: KindInvalidTransition, Message: message}
}

func NewAuthorizationError(message string) *AppError {
	return &AppError{Kind: KindAuthorization, Message: message}
}

func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Retryable: true, Err: err}
}

// NewAmbiguousUpstreamError is used when the processor may have applied the request.
// Callers must check status before trying again.
func NewAmbiguousUpstreamError(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Ambiguous: true, Err: err}
}

// AsAppError extracts the AppError from err, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// storageError passes semantic errors through and turns everything else into an upstream error.
func storageError(op string, err error) error {
	if _, ok := AsAppError(err); ok {
		return err
	}
	return NewUpstreamError("failed to "+op, err)
}
