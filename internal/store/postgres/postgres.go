// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an open database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "elnsync_schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return queryCreateFolderRef(ctx, s.db, ref)
}

func (s *PostgresStore) GetFolderRef(ctx context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	return queryGetFolderRef(ctx, s.db, kind, recordID)
}

func (s *PostgresStore) UpdateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return queryUpdateFolderRef(ctx, s.db, ref)
}

func (s *PostgresStore) DeleteFolderRef(ctx context.Context, kind model.RecordKind, recordID string) error {
	return queryDeleteFolderRef(ctx, s.db, kind, recordID)
}

func (s *PostgresStore) ListFolderRefs(ctx context.Context, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	return queryListFolderRefs(ctx, s.db, filter)
}

func (s *PostgresStore) SaveSchema(ctx context.Context, schema *model.AssayTypeSchema) error {
	return querySaveSchema(ctx, s.db, schema)
}

func (s *PostgresStore) GetSchema(ctx context.Context, name string) (*model.AssayTypeSchema, error) {
	return queryGetSchema(ctx, s.db, name)
}

func (s *PostgresStore) ListSchemas(ctx context.Context) ([]*model.AssayTypeSchema, error) {
	return queryListSchemas(ctx, s.db)
}

func (s *PostgresStore) DeleteSchema(ctx context.Context, name string) error {
	return queryDeleteSchema(ctx, s.db, name)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
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

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return queryCreateFolderRef(ctx, s.tx, ref)
}

func (s *txStore) GetFolderRef(ctx context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	return queryGetFolderRef(ctx, s.tx, kind, recordID)
}

func (s *txStore) UpdateFolderRef(ctx context.Context, ref *model.FolderRef) error {
	return queryUpdateFolderRef(ctx, s.tx, ref)
}

func (s *txStore) DeleteFolderRef(ctx context.Context, kind model.RecordKind, recordID string) error {
	return queryDeleteFolderRef(ctx, s.tx, kind, recordID)
}

func (s *txStore) ListFolderRefs(ctx context.Context, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	return queryListFolderRefs(ctx, s.tx, filter)
}

func (s *txStore) SaveSchema(ctx context.Context, schema *model.AssayTypeSchema) error {
	return querySaveSchema(ctx, s.tx, schema)
}

func (s *txStore) GetSchema(ctx context.Context, name string) (*model.AssayTypeSchema, error) {
	return queryGetSchema(ctx, s.tx, name)
}

func (s *txStore) ListSchemas(ctx context.Context) ([]*model.AssayTypeSchema, error) {
	return queryListSchemas(ctx, s.tx)
}

func (s *txStore) DeleteSchema(ctx context.Context, name string) error {
	return queryDeleteSchema(ctx, s.tx, name)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
