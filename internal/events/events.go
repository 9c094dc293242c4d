// Package events publishes notebook sync notifications to the event bus.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// Event topic constants
const (
	TopicFolderCreated = "eln.folder.created"
	TopicFolderLinked  = "eln.folder.linked"
	TopicFolderRepair  = "eln.folder.repaired"
	TopicEntryCreated  = "eln.entry.created"

	TopicSchemaDefined = "eln.schema.defined"
	TopicSchemaDeleted = "eln.schema.deleted"

	// TopicAll matches every topic above.
	TopicAll = "eln.>"
)

// Event types

// FolderCreated is emitted when a new notebook folder is created for a record.
type FolderCreated struct {
	Ref    *model.FolderRef `json:"ref"`
	Folder *model.Folder    `json:"folder"`
}

// FolderLinked is emitted when a program is linked to a pre-existing folder.
type FolderLinked struct {
	Ref    *model.FolderRef `json:"ref"`
	Folder *model.Folder    `json:"folder"`
}

// FolderRepaired is emitted when a folder reference is re-pointed.
type FolderRepaired struct {
	Ref              *model.FolderRef `json:"ref"`
	PreviousFolderID string           `json:"previous_folder_id"`
}

// EntryCreated is emitted after an entry is created in a record's folder.
type EntryCreated struct {
	RecordKind model.RecordKind `json:"record_kind"`
	RecordID   string           `json:"record_id"`
	Entry      *model.Entry     `json:"entry"`
	Unresolved []string         `json:"unresolved_authors,omitempty"`
}

type SchemaDefined struct {
	Schema *model.AssayTypeSchema `json:"schema"`
}

type SchemaDeleted struct {
	Name      string    `json:"name"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
