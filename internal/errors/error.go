package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryRouting    Category = "routing"
	CategoryUpstream   Category = "upstream"
	CategoryInternal   Category = "internal"
	CategoryCLI        Category = "cli"
)

// Status returns the HTTP status an API response uses for the category.
func (c Category) Status() int {
	switch c {
	case CategoryValidation, CategoryRouting:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NotesError is a structured error with a stable code and an optional hint.
type NotesError struct {
	// Code is a unique error identifier (e.g., "N300").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Field names the offending input field for validation errors.
	Field string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// StatusCode overrides the category status when non-zero.
	StatusCode int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *NotesError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *NotesError) Unwrap() error {
	return e.Wrapped
}

// Status returns the HTTP status for the error.
func (e *NotesError) Status() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return e.Category.Status()
}

// New creates an error from a registered code. Unknown codes produce an
// internal error carrying the code.
func New(code string) *NotesError {
	t, ok := registry[code]
	if !ok {
		return &NotesError{Code: code, Category: CategoryInternal, Message: "Unknown error"}
	}
	return &NotesError{
		Code:       code,
		Category:   t.Category,
		Message:    t.Message,
		Suggestion: t.Suggestion,
		StatusCode: t.Status,
	}
}

// Newf creates an uncoded error with a formatted message.
func Newf(format string, args ...any) *NotesError {
	return &NotesError{Category: CategoryInternal, Message: fmt.Sprintf(format, args...)}
}

// FromError returns err as a *NotesError, wrapping it as an internal
// error when it is not one already.
func FromError(err error) *NotesError {
	if err == nil {
		return nil
	}
	var ne *NotesError
	if stderrors.As(err, &ne) {
		return ne
	}
	return &NotesError{
		Code:     "N500",
		Category: CategoryInternal,
		Message:  registry["N500"].Message,
		Detail:   err.Error(),
		Wrapped:  err,
	}
}

// WithDetail returns a copy with the detail set.
func (e *NotesError) WithDetail(detail string) *NotesError {
	c := *e
	c.Detail = detail
	return &c
}

// WithField returns a copy with the field set.
func (e *NotesError) WithField(field string) *NotesError {
	c := *e
	c.Field = field
	return &c
}

// WithSuggestion returns a copy with the suggestion set.
func (e *NotesError) WithSuggestion(s string) *NotesError {
	c := *e
	c.Suggestion = s
	return &c
}

// WithStatus returns a copy with the HTTP status overridden.
func (e *NotesError) WithStatus(status int) *NotesError {
	c := *e
	c.StatusCode = status
	return &c
}

// Wrap returns a copy wrapping err.
func (e *NotesError) Wrap(err error) *NotesError {
	c := *e
	c.Wrapped = err
	return &c
}

// Is matches another *NotesError by code.
func (e *NotesError) Is(target error) bool {
	t, ok := target.(*NotesError)
	return ok && t.Code != "" && t.Code == e.Code
}

// CodeOf returns the code of the first *NotesError in err's chain, or ""
// when there is none.
func CodeOf(err error) string {
	var ne *NotesError
	if stderrors.As(err, &ne) {
		return ne.Code
	}
	return ""
}

// HTTPStatus returns the status an API handler should use for err.
func HTTPStatus(err error) int {
	var ne *NotesError
	if stderrors.As(err, &ne) {
		return ne.Status()
	}
	return http.StatusInternalServerError
}
