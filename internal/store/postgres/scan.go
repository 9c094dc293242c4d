package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanFolderRef scans a row in folderRefColumns order.
func scanFolderRef(row scannable) (*model.FolderRef, error) {
	var (
		r    model.FolderRef
		kind string
		url  sql.NullString
		path sql.NullString
	)
	err := row.Scan(
		&r.ID,
		&kind,
		&r.RecordID,
		&url,
		&r.Name,
		&path,
		&r.ExternalID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.RecordKind = model.RecordKind(kind)
	r.URL = url.String
	r.Path = path.String
	return &r, nil
}

// scanSchema scans a row in schemaColumns order. Fields are stored as a
// JSONB array of definitions.
func scanSchema(row scannable) (*model.AssayTypeSchema, error) {
	var (
		s           model.AssayTypeSchema
		description sql.NullString
		fields      []byte
	)
	if err := row.Scan(&s.Name, &description, &fields, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Description = description.String
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &s.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %q: %w", s.Name, err)
		}
	}
	if s.Fields == nil {
		s.Fields = []model.FieldDefinition{}
	}
	return &s, nil
}

// schemaFields returns the definitions to persist, never nil so the
// column always holds a JSON array.
func schemaFields(s *model.AssayTypeSchema) []model.FieldDefinition {
	if s.Fields == nil {
		return []model.FieldDefinition{}
	}
	return s.Fields
}

// nullString converts an empty string to a NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
