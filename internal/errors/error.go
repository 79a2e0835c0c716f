package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryCollaborator Category = "collaborator"
	CategoryStructural   Category = "structural"
	CategoryWalk         Category = "walk"
	CategoryCatalog      Category = "catalog"
	CategoryConfig       Category = "config"
	CategoryCLI          Category = "cli"
)

// Step identifies the workflow step an error belongs to.
type Step string

const (
	StepScaffold Step = "scaffold"
	StepCatalog  Step = "catalog"
	StepFileTree Step = "file-tree"
)

// Location represents a source file location.
type Location struct {
	File string
	Line int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// ForgeError is a structured error with a code, the failing workflow step and a suggestion.
type ForgeError struct {
	// Code is a unique error identifier (e.g., "E200").
	Code string

	// Category is the error type (validation, collaborator, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Step is the workflow step that failed, if any.
	Step Step

	// Location is the file the error refers to, if any.
	Location *Location

	// Suggestion is a hint on how to fix or complete the operation by hand.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	msg := e.Message
	if e.Detail != "" && e.Detail != registry[e.Code].Detail {
		msg += ": " + e.Detail
	}
	if e.Step != "" {
		msg = "[" + string(e.Step) + "] " + msg
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ForgeError) Unwrap() error {
	return e.Wrapped
}

// WithLocation attaches the file the error refers to.
func (e *ForgeError) WithLocation(file string, line int) *ForgeError {
	e.Location = &Location{File: file, Line: line}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ForgeError) WithSuggestion(s string) *ForgeError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ForgeError) WithDetail(d string) *ForgeError {
	e.Detail = d
	return e
}

// WithStep records which workflow step failed.
func (e *ForgeError) WithStep(s Step) *ForgeError {
	e.Step = s
	return e
}

// Wrap wraps another error.
func (e *ForgeError) Wrap(err error) *ForgeError {
	e.Wrapped = err
	return e
}

// New creates a ForgeError from a registered error code.
func New(code string) *ForgeError {
	template, ok := registry[code]
	if !ok {
		return &ForgeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ForgeError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new ForgeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ForgeError {
	return &ForgeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ForgeError.
func FromError(err error, code string) *ForgeError {
	if err == nil {
		return nil
	}
	var fe *ForgeError
	if stderrors.As(err, &fe) {
		return fe
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first ForgeError in err's chain, or "".
func CodeOf(err error) string {
	var fe *ForgeError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Is reports whether err's chain contains a ForgeError with the given code.
func Is(err error, code string) bool {
	for err != nil {
		if fe, ok := err.(*ForgeError); ok && fe.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsCategory reports whether err's chain contains a ForgeError of the given category.
func IsCategory(err error, cat Category) bool {
	for err != nil {
		if fe, ok := err.(*ForgeError); ok && fe.Category == cat {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// StepOf returns the workflow step recorded on err, or "".
func StepOf(err error) Step {
	for err != nil {
		if fe, ok := err.(*ForgeError); ok && fe.Step != "" {
			return fe.Step
		}
		err = stderrors.Unwrap(err)
	}
	return ""
}
