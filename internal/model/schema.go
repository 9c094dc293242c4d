package model

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var fieldTypeValues = func() []any {
	out := make([]any, len(FieldTypes))
	for i, t := range FieldTypes {
		out[i] = t
	}
	return out
}()

// Validate checks a single field definition in isolation.
func (d FieldDefinition) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.FieldName, validation.Required),
		validation.Field(&d.DisplayName, validation.Required),
		validation.Field(&d.Type, validation.Required, validation.In(fieldTypeValues...)),
	)
}

// ValidateSchema checks an assay type schema before it is stored: a name,
// complete field definitions, and unique field and display names.
func ValidateSchema(s *AssayTypeSchema) error {
	ve := ValidationError{Schema: s.Name}

	if strings.TrimSpace(s.Name) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	}

	fieldNames := make(map[string]int, len(s.Fields))
	displayNames := make(map[string]int, len(s.Fields))
	for i, d := range s.Fields {
		prefix := fmt.Sprintf("fields[%d]", i)
		if err := d.Validate(); err != nil {
			ve.Errors = append(ve.Errors, definitionErrors(prefix, err)...)
		}
		if d.FieldName != "" {
			if j, dup := fieldNames[d.FieldName]; dup {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   prefix + ".field_name",
					Message: fmt.Sprintf("duplicates fields[%d] (%q)", j, d.FieldName),
				})
			} else {
				fieldNames[d.FieldName] = i
			}
		}
		if d.DisplayName != "" {
			if j, dup := displayNames[d.DisplayName]; dup {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   prefix + ".display_name",
					Message: fmt.Sprintf("duplicates fields[%d] (%q)", j, d.DisplayName),
				})
			} else {
				displayNames[d.DisplayName] = i
			}
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// definitionErrors flattens ozzo errors into FieldErrors in a stable order.
func definitionErrors(prefix string, err error) []FieldError {
	errs, ok := err.(validation.Errors)
	if !ok {
		return []FieldError{{Field: prefix, Message: err.Error()}}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]FieldError, 0, len(keys))
	for _, k := range keys {
		out = append(out, FieldError{Field: prefix + "." + k, Message: errs[k].Error()})
	}
	return out
}
