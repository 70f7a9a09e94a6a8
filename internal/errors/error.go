package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryCatalog Category = "catalog"
	CategoryInstall Category = "install"
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
	CategoryIO      Category = "io"
)

// MarketError is a structured error with a stable code, a plain-language
// explanation and an optional hint on how to fix it.
type MarketError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type (catalog, install, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *MarketError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *MarketError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same error code.
func (e *MarketError) Is(target error) bool {
	t, ok := target.(*MarketError)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *MarketError) WithSuggestion(s string) *MarketError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *MarketError) WithDetail(d string) *MarketError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with fmt-style formatting.
func (e *MarketError) WithDetailf(format string, args ...any) *MarketError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *MarketError) Wrap(err error) *MarketError {
	e.Wrapped = err
	return e
}

// New creates a MarketError from a registered error code.
func New(code string) *MarketError {
	template, ok := registry[code]
	if !ok {
		return &MarketError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &MarketError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new MarketError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *MarketError {
	return &MarketError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a MarketError.
func FromError(err error, code string) *MarketError {
	if err == nil {
		return nil
	}
	var me *MarketError
	if stderrors.As(err, &me) {
		return me
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first MarketError in err's chain, or "".
func CodeOf(err error) string {
	var me *MarketError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a MarketError with code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &MarketError{Code: code})
}
