// Package store defines persistence for notebook folder references and
// assay type schemas.
package store

import (
	"context"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// FolderRefFilter narrows ListFolderRefs. Zero values match everything.
type FolderRefFilter struct {
	Kind       model.RecordKind
	ExternalID string
	Limit      int
}

// Store defines the persistence interface for the notebook sync. Lookups of
// absent rows return an error matching model.ErrNotFound.
type Store interface {
	// Folder references
	CreateFolderRef(ctx context.Context, ref *model.FolderRef) error
	GetFolderRef(ctx context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error)
	UpdateFolderRef(ctx context.Context, ref *model.FolderRef) error
	DeleteFolderRef(ctx context.Context, kind model.RecordKind, recordID string) error
	ListFolderRefs(ctx context.Context, filter FolderRefFilter) ([]*model.FolderRef, error)

	// Assay type schemas
	SaveSchema(ctx context.Context, schema *model.AssayTypeSchema) error
	GetSchema(ctx context.Context, name string) (*model.AssayTypeSchema, error)
	ListSchemas(ctx context.Context) ([]*model.AssayTypeSchema, error)
	DeleteSchema(ctx context.Context, name string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
