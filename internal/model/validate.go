package model

import (
	"fmt"
	"strings"
)

// ValidationError holds the field-level violations found for one record
// or one schema definition. It matches ErrInvalidSchema.
type ValidationError struct {
	Record string // record being validated, empty for schema definitions
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Type    FieldType `json:"type,omitempty"`   // declared type, when the failure is a type mismatch
	Actual  string    `json:"actual,omitempty"` // runtime type of the offending value
}

func (fe FieldError) String() string {
	return fe.Field + ": " + fe.Message
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	var subject string
	switch {
	case e.Record != "" && e.Schema != "":
		subject = fmt.Sprintf(" for record %q (assay type %q)", e.Record, e.Schema)
	case e.Record != "":
		subject = fmt.Sprintf(" for record %q", e.Record)
	case e.Schema != "":
		subject = fmt.Sprintf(" in schema %q", e.Schema)
	}
	return "invalid schema" + subject + ": " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first violation found.
func (e *ValidationError) First() FieldError {
	if len(e.Errors) == 0 {
		return FieldError{}
	}
	return e.Errors[0]
}

// Is lets errors.Is match ErrInvalidSchema.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSchema
}
