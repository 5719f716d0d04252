package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryStore    Category = "store"
	CategoryCLI      Category = "cli"
)

// WiretapError is a structured error with a code, explanation and hint.
type WiretapError struct {
	// Code is a unique error identifier (e.g., "W001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Status is the HTTP status used by the control API.
	Status int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *WiretapError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *WiretapError) Unwrap() error {
	return e.Wrapped
}

// HTTPStatus returns Status, or 500 when unset.
func (e *WiretapError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// WithSuggestion adds a fix suggestion to the error.
func (e *WiretapError) WithSuggestion(s string) *WiretapError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *WiretapError) WithDetail(d string) *WiretapError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *WiretapError) Wrap(err error) *WiretapError {
	e.Wrapped = err
	return e
}

// New creates a WiretapError from a registered error code.
func New(code string) *WiretapError {
	template, ok := registry[code]
	if !ok {
		return &WiretapError{
			Code:    code,
			Message: "Unknown error",
			Status:  http.StatusInternalServerError,
		}
	}
	return &WiretapError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		Status:   template.Status,
	}
}

// Newf creates a new WiretapError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *WiretapError {
	return &WiretapError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a WiretapError. An error that already
// is (or wraps) a *WiretapError is returned unchanged.
func FromError(err error, code string) *WiretapError {
	if err == nil {
		return nil
	}
	var we *WiretapError
	if stderrors.As(err, &we) {
		return we
	}
	return New(code).Wrap(err)
}
