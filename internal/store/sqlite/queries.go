package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// timeLayout keeps sub-second precision and sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const folderRefColumns = `id, record_kind, record_id, url, name, path, external_id, created_at, updated_at`

const schemaColumns = `name, description, fields, created_at, updated_at`

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scannable interface {
	Scan(dest ...any) error
}

func createFolderRef(ctx context.Context, db executor, r *model.FolderRef) error {
	_, err := db.ExecContext(ctx, `INSERT INTO folder_refs (`+folderRefColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.RecordKind), r.RecordID, r.URL, r.Name, r.Path, r.ExternalID,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert folder ref %s/%s: %w", r.RecordKind, r.RecordID, err)
	}
	return nil
}

func getFolderRef(ctx context.Context, db executor, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+folderRefColumns+` FROM folder_refs WHERE record_kind = ? AND record_id = ?`,
		string(kind), recordID)
	r, err := scanFolderRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder ref %s/%s: %w", kind, recordID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get folder ref %s/%s: %w", kind, recordID, err)
	}
	return r, nil
}

func updateFolderRef(ctx context.Context, db executor, r *model.FolderRef) error {
	res, err := db.ExecContext(ctx, `UPDATE folder_refs
		SET url = ?, name = ?, path = ?, external_id = ?, updated_at = ?
		WHERE record_kind = ? AND record_id = ?`,
		r.URL, r.Name, r.Path, r.ExternalID, formatTime(r.UpdatedAt),
		string(r.RecordKind), r.RecordID,
	)
	if err != nil {
		return fmt.Errorf("update folder ref %s/%s: %w", r.RecordKind, r.RecordID, err)
	}
	return requireRow(res, fmt.Sprintf("folder ref %s/%s", r.RecordKind, r.RecordID))
}

func deleteFolderRef(ctx context.Context, db executor, kind model.RecordKind, recordID string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM folder_refs WHERE record_kind = ? AND record_id = ?`, string(kind), recordID)
	if err != nil {
		return fmt.Errorf("delete folder ref %s/%s: %w", kind, recordID, err)
	}
	return requireRow(res, fmt.Sprintf("folder ref %s/%s", kind, recordID))
}

func listFolderRefs(ctx context.Context, db executor, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		where = append(where, "record_kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.ExternalID != "" {
		where = append(where, "external_id = ?")
		args = append(args, filter.ExternalID)
	}

	q := `SELECT ` + folderRefColumns + ` FROM folder_refs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY record_kind, record_id"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder refs: %w", err)
	}
	defer rows.Close()

	var refs []*model.FolderRef
	for rows.Next() {
		r, err := scanFolderRef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func saveSchema(ctx context.Context, db executor, s *model.AssayTypeSchema) error {
	fields := s.Fields
	if fields == nil {
		fields = []model.FieldDefinition{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO assay_type_schemas (`+schemaColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			fields = excluded.fields,
			updated_at = excluded.updated_at`,
		s.Name, s.Description, string(data), formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert schema %q: %w", s.Name, err)
	}
	return nil
}

func getSchema(ctx context.Context, db executor, name string) (*model.AssayTypeSchema, error) {
	row := db.QueryRowContext(ctx, `SELECT `+schemaColumns+` FROM assay_type_schemas WHERE name = ?`, name)
	s, err := scanSchema(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schema %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get schema %q: %w", name, err)
	}
	return s, nil
}

func listSchemas(ctx context.Context, db executor) ([]*model.AssayTypeSchema, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+schemaColumns+` FROM assay_type_schemas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var out []*model.AssayTypeSchema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func deleteSchema(ctx context.Context, db executor, name string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM assay_type_schemas WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete schema %q: %w", name, err)
	}
	return requireRow(res, fmt.Sprintf("schema %q", name))
}

func scanFolderRef(row scannable) (*model.FolderRef, error) {
	var (
		r                model.FolderRef
		kind             string
		created, updated string
	)
	if err := row.Scan(&r.ID, &kind, &r.RecordID, &r.URL, &r.Name, &r.Path, &r.ExternalID, &created, &updated); err != nil {
		return nil, err
	}
	r.RecordKind = model.RecordKind(kind)
	var err error
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSchema(row scannable) (*model.AssayTypeSchema, error) {
	var (
		s                model.AssayTypeSchema
		fields           string
		created, updated string
	)
	if err := row.Scan(&s.Name, &s.Description, &fields, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &s.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %q: %w", s.Name, err)
	}
	if s.Fields == nil {
		s.Fields = []model.FieldDefinition{}
	}
	var err error
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &s, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
