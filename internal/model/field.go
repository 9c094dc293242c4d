package model

import (
	"strings"
	"time"
)

// FieldType is the declared type of an assay custom field.
type FieldType string

const (
	FieldTypeString  FieldType = "STRING"
	FieldTypeText    FieldType = "TEXT"
	FieldTypeInteger FieldType = "INTEGER"
	FieldTypeFloat   FieldType = "FLOAT"
	FieldTypeDate    FieldType = "DATE"
	FieldTypeBoolean FieldType = "BOOLEAN"
)

// FieldTypes lists every supported field type.
var FieldTypes = []FieldType{
	FieldTypeString,
	FieldTypeText,
	FieldTypeInteger,
	FieldTypeFloat,
	FieldTypeDate,
	FieldTypeBoolean,
}

// IsValid checks whether the field type is a known value.
func (t FieldType) IsValid() bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// ParseFieldType parses a case-insensitive field type name.
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// FieldDefinition declares one custom field of an assay type.
type FieldDefinition struct {
	DisplayName string    `json:"display_name" toml:"display_name" yaml:"display_name"`
	FieldName   string    `json:"field_name" toml:"field_name" yaml:"field_name"`
	Type        FieldType `json:"type" toml:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" toml:"required" yaml:"required"`
	Description string    `json:"description,omitempty" toml:"description" yaml:"description"`
}

// AssayTypeSchema is the ordered set of custom fields an assay of a given
// type must carry. FieldName and DisplayName are unique within a schema.
type AssayTypeSchema struct {
	Name        string            `json:"name" toml:"name" yaml:"name"`
	Description string            `json:"description,omitempty" toml:"description" yaml:"description"`
	Fields      []FieldDefinition `json:"fields" toml:"fields" yaml:"fields"`
	CreatedAt   time.Time         `json:"created_at" toml:"-" yaml:"-"`
	UpdatedAt   time.Time         `json:"updated_at" toml:"-" yaml:"-"`
}

// Field returns the definition with the given field name.
func (s *AssayTypeSchema) Field(name string) (*FieldDefinition, bool) {
	for i := range s.Fields {
		if s.Fields[i].FieldName == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}
