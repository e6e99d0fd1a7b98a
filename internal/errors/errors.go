// Package errors provides the structured error type (ExportError) used to
// classify failures across the export pipeline and map them onto HTTP
// responses.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies an ExportError for propagation decisions.
type Category string

const (
	// Rejected before a job is created.
	CategoryValidation Category = "validation"

	// Project, job, or artifact does not exist.
	CategoryNotFound Category = "not_found"

	// Required manuscript content missing in a way that blocks composition.
	CategoryComposition Category = "composition"

	// Format-specific rendering failure, including unsupported formatting options.
	CategoryRender Category = "render"

	// Artifact store or retrieve failure.
	CategoryDelivery Category = "delivery"

	// Everything else.
	CategoryInternal Category = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ContextFields carries structured context for an ExportError.
type ContextFields map[string]any

// ExportError is a structured error with category, severity, and context.
type ExportError struct {
	Category Category      `json:"category"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"-"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap supports errors.Is/As chains.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// WithContext adds a key-value pair to the error context.
func (e *ExportError) WithContext(key string, value any) *ExportError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new ExportError.
func New(category Category, message string) *ExportError {
	return &ExportError{Category: category, Severity: SeverityError, Message: message}
}

// Wrap creates a new ExportError that wraps an existing error.
func Wrap(err error, category Category, message string) *ExportError {
	return &ExportError{Category: category, Severity: SeverityError, Message: message, Cause: err}
}

// Validation creates a validation error (rejected pre-job, 400).
func Validation(message string) *ExportError {
	return &ExportError{Category: CategoryValidation, Severity: SeverityWarning, Message: message}
}

// NotFound creates a not-found error (404).
func NotFound(message string) *ExportError {
	return &ExportError{Category: CategoryNotFound, Severity: SeverityWarning, Message: message}
}

// Composition creates a composition error.
func Composition(message string) *ExportError {
	return &ExportError{Category: CategoryComposition, Severity: SeverityError, Message: message}
}

// Render creates a rendering error.
func Render(message string) *ExportError {
	return &ExportError{Category: CategoryRender, Severity: SeverityError, Message: message}
}

// Delivery creates an artifact store/retrieve error.
func Delivery(message string) *ExportError {
	return &ExportError{Category: CategoryDelivery, Severity: SeverityError, Message: message}
}

// AsExport extracts an ExportError from an error chain.
func AsExport(err error) (*ExportError, bool) {
	var ee *ExportError
	if stderrors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category Category) bool {
	if ee, ok := AsExport(err); ok {
		return ee.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, defaulting to CategoryInternal.
func GetCategory(err error) Category {
	if ee, ok := AsExport(err); ok {
		return ee.Category
	}
	return CategoryInternal
}

// UserMessage returns a message safe to surface to clients. Internal faults
// are replaced with a generic message so stack details never leak into job
// records or HTTP payloads.
func UserMessage(err error) string {
	if ee, ok := AsExport(err); ok && ee.Category != CategoryInternal {
		return ee.Message
	}
	return "export failed unexpectedly"
}
