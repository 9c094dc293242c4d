package model

import "fmt"

// ValidateFields checks a record's field map against an assay type schema.
// Every declared field must be present as a key; required fields must be
// non-null; present values must match the declared type. Keys the schema
// does not declare are ignored. Violations are reported in schema order.
// Returns a *ValidationError on failure, nil on success.
func ValidateFields(record string, fields FieldMap, schema *AssayTypeSchema) error {
	if schema == nil {
		return nil
	}
	ve := ValidationError{Record: record, Schema: schema.Name}

	for _, d := range schema.Fields {
		val, present := fields[d.FieldName]
		if !present {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   d.FieldName,
				Message: "is missing",
				Type:    d.Type,
			})
			continue
		}
		if val.IsNull() {
			if d.Required {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   d.FieldName,
					Message: "is required",
					Type:    d.Type,
					Actual:  val.Kind().String(),
				})
			}
			continue
		}
		if err := validateFieldValue(d, val); err != nil {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   d.FieldName,
				Message: err.Error(),
				Type:    d.Type,
				Actual:  val.Kind().String(),
			})
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func validateFieldValue(d FieldDefinition, val Value) error {
	want := func(kind ValueKind) error {
		if val.Kind() != kind {
			return fmt.Errorf("declared %s must be %s, got %s", d.Type, kind, val.Kind())
		}
		return nil
	}
	switch d.Type {
	case FieldTypeString, FieldTypeText:
		return want(KindString)
	case FieldTypeInteger:
		return want(KindInteger)
	case FieldTypeFloat:
		return want(KindFloat)
	case FieldTypeBoolean:
		return want(KindBoolean)
	case FieldTypeDate:
		if _, ok := val.AsDate(); !ok {
			return fmt.Errorf("declared %s must be a date, a %q string or epoch milliseconds, got %s",
				d.Type, DateLayout, val.Kind())
		}
		return nil
	}
	return fmt.Errorf("unknown field type %q", d.Type)
}
