package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// folderRefColumns is the column list used for SELECT statements on folder_refs.
const folderRefColumns = `id, record_kind, record_id, url, name, path, external_id, created_at, updated_at`

// schemaColumns is the column list used for SELECT statements on assay_type_schemas.
const schemaColumns = `name, description, fields, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateFolderRef(ctx context.Context, db executor, r *model.FolderRef) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO folder_refs (
			id, record_kind, record_id, url, name, path, external_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID,
		string(r.RecordKind),
		r.RecordID,
		nullString(r.URL),
		r.Name,
		nullString(r.Path),
		r.ExternalID,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert folder ref %s/%s: %w", r.RecordKind, r.RecordID, err)
	}
	return nil
}

func queryGetFolderRef(ctx context.Context, db executor, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+folderRefColumns+` FROM folder_refs WHERE record_kind = $1 AND record_id = $2`,
		string(kind), recordID)
	r, err := scanFolderRef(row)
	if err != nil {
		return nil, notFound(err, "folder ref %s/%s", kind, recordID)
	}
	return r, nil
}

func queryUpdateFolderRef(ctx context.Context, db executor, r *model.FolderRef) error {
	res, err := db.ExecContext(ctx, `
		UPDATE folder_refs SET
			url = $3, name = $4, path = $5, external_id = $6, updated_at = $7
		WHERE record_kind = $1 AND record_id = $2`,
		string(r.RecordKind),
		r.RecordID,
		nullString(r.URL),
		r.Name,
		nullString(r.Path),
		r.ExternalID,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update folder ref %s/%s: %w", r.RecordKind, r.RecordID, err)
	}
	return requireRows(res, "folder ref %s/%s", r.RecordKind, r.RecordID)
}

func queryDeleteFolderRef(ctx context.Context, db executor, kind model.RecordKind, recordID string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM folder_refs WHERE record_kind = $1 AND record_id = $2`,
		string(kind), recordID)
	if err != nil {
		return fmt.Errorf("delete folder ref %s/%s: %w", kind, recordID, err)
	}
	return requireRows(res, "folder ref %s/%s", kind, recordID)
}

func queryListFolderRefs(ctx context.Context, db executor, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	var (
		whereClauses []string
		args         []any
	)
	nextArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Kind != "" {
		whereClauses = append(whereClauses, "record_kind = "+nextArg(string(filter.Kind)))
	}
	if filter.ExternalID != "" {
		whereClauses = append(whereClauses, "external_id = "+nextArg(filter.ExternalID))
	}

	q := `SELECT ` + folderRefColumns + ` FROM folder_refs`
	if len(whereClauses) > 0 {
		q += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	q += " ORDER BY record_kind, record_id"
	if filter.Limit > 0 {
		q += " LIMIT " + nextArg(filter.Limit)
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

func querySaveSchema(ctx context.Context, db executor, s *model.AssayTypeSchema) error {
	fields, err := json.Marshal(schemaFields(s))
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO assay_type_schemas (name, description, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`,
		s.Name,
		nullString(s.Description),
		fields,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert schema %q: %w", s.Name, err)
	}
	return nil
}

func queryGetSchema(ctx context.Context, db executor, name string) (*model.AssayTypeSchema, error) {
	row := db.QueryRowContext(ctx, `SELECT `+schemaColumns+` FROM assay_type_schemas WHERE name = $1`, name)
	s, err := scanSchema(row)
	if err != nil {
		return nil, notFound(err, "schema %q", name)
	}
	return s, nil
}

func queryListSchemas(ctx context.Context, db executor) ([]*model.AssayTypeSchema, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+schemaColumns+` FROM assay_type_schemas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []*model.AssayTypeSchema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		schemas = append(schemas, s)
	}
	return schemas, rows.Err()
}

func queryDeleteSchema(ctx context.Context, db executor, name string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM assay_type_schemas WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete schema %q: %w", name, err)
	}
	return requireRows(res, "schema %q", name)
}

// notFound maps sql.ErrNoRows onto model.ErrNotFound and passes other
// errors through.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, model.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// requireRows returns model.ErrNotFound when res touched no rows.
func requireRows(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, model.ErrNotFound)...)
	}
	return nil
}
