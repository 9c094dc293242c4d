// Package sqlite implements store.Store on an embedded SQLite database for
// local and single-user deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// migrations are applied in order; the index plus one is the version.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS folder_refs (
			id          TEXT PRIMARY KEY NOT NULL,
			record_kind TEXT NOT NULL,
			record_id   TEXT NOT NULL,
			url         TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL,
			path        TEXT NOT NULL DEFAULT '',
			external_id TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			UNIQUE (record_kind, record_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_folder_refs_external_id ON folder_refs(external_id)`,
		`CREATE TABLE IF NOT EXISTS assay_type_schemas (
			name        TEXT PRIMARY KEY NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			fields      TEXT NOT NULL DEFAULT '[]',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
	},
}

// SQLiteStore implements store.Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens (creating if needed) the database at path and applies pending
// migrations. ":memory:" opens a private in-memory database.
func New(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: SQLite serializes writers, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1

		var exists int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return createFolderRef(ctx, s.db, ref)
}

func (s *SQLiteStore) GetFolderRef(ctx context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	return getFolderRef(ctx, s.db, kind, recordID)
}

func (s *SQLiteStore) UpdateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return updateFolderRef(ctx, s.db, ref)
}

func (s *SQLiteStore) DeleteFolderRef(ctx context.Context, kind model.RecordKind, recordID string) error {
	return deleteFolderRef(ctx, s.db, kind, recordID)
}

func (s *SQLiteStore) ListFolderRefs(ctx context.Context, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	return listFolderRefs(ctx, s.db, filter)
}

func (s *SQLiteStore) SaveSchema(ctx context.Context, schema *model.AssayTypeSchema) error {
	return saveSchema(ctx, s.db, schema)
}

func (s *SQLiteStore) GetSchema(ctx context.Context, name string) (*model.AssayTypeSchema, error) {
	return getSchema(ctx, s.db, name)
}

func (s *SQLiteStore) ListSchemas(ctx context.Context) ([]*model.AssayTypeSchema, error) {
	return listSchemas(ctx, s.db)
}

func (s *SQLiteStore) DeleteSchema(ctx context.Context, name string) error {
	return deleteSchema(ctx, s.db, name)
}

// RunInTransaction runs fn against a store bound to one transaction,
// committing when fn returns nil.
func (s *SQLiteStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return createFolderRef(ctx, s.tx, ref)
}

func (s *txStore) GetFolderRef(ctx context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	return getFolderRef(ctx, s.tx, kind, recordID)
}

func (s *txStore) UpdateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return updateFolderRef(ctx, s.tx, ref)
}

func (s *txStore) DeleteFolderRef(ctx context.Context, kind model.RecordKind, recordID string) error {
	return deleteFolderRef(ctx, s.tx, kind, recordID)
}

func (s *txStore) ListFolderRefs(ctx context.Context, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	return listFolderRefs(ctx, s.tx, filter)
}

func (s *txStore) SaveSchema(ctx context.Context, schema *model.AssayTypeSchema) error {
	return saveSchema(ctx, s.tx, schema)
}

func (s *txStore) GetSchema(ctx context.Context, name string) (*model.AssayTypeSchema, error) {
	return getSchema(ctx, s.tx, name)
}

func (s *txStore) ListSchemas(ctx context.Context) ([]*model.AssayTypeSchema, error) {
	return listSchemas(ctx, s.tx)
}

func (s *txStore) DeleteSchema(ctx context.Context, name string) error {
	return deleteSchema(ctx, s.tx, name)
}

func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Close() error { return nil }
