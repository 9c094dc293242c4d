// Package client provides the interface the notebook sync uses to talk to
// the external lab notebook service and an HTTP/JSON implementation of its
// v2 REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// NotebookClient is the set of remote operations on notebook resources. List
// operations return one page of items and the cursor of the next page; an
// empty cursor means the listing is complete. Drive them with paging.FetchAll.
type NotebookClient interface {
	// Projects
	ListProjects(ctx context.Context, cursor string) ([]*model.Project, string, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)

	// Folders
	ListFolders(ctx context.Context, filter FolderFilter, cursor string) ([]*model.Folder, string, error)
	GetFolder(ctx context.Context, id string) (*model.Folder, error)
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*model.Folder, error)

	// Entries
	ListEntries(ctx context.Context, filter EntryFilter, cursor string) ([]*model.Entry, string, error)
	GetEntry(ctx context.Context, id string) (*model.Entry, error)
	CreateEntry(ctx context.Context, req *CreateEntryRequest) (*model.Entry, error)

	// Templates and schemas
	ListTemplates(ctx context.Context, cursor string) ([]*model.Template, string, error)
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	ListEntrySchemas(ctx context.Context, cursor string) ([]*model.EntrySchema, string, error)
	GetEntrySchema(ctx context.Context, id string) (*model.EntrySchema, error)

	// Users
	ListUsers(ctx context.Context, filter UserFilter, cursor string) ([]*model.ExternalUser, string, error)
	GetUser(ctx context.Context, id string) (*model.ExternalUser, error)

	// Lifecycle
	Close() error
}

// FolderFilter narrows a folder listing. "Root folders", "children of X" and
// "folders in project Y" are the same listing with different keys.
type FolderFilter struct {
	ParentFolderID string
	ProjectID      string
}

// EntryFilter narrows an entry listing.
type EntryFilter struct {
	ProjectID string
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Handle string
}

// CreateFolderRequest holds parameters for creating a folder.
type CreateFolderRequest struct {
	Name           string `json:"name"`
	ParentFolderID string `json:"parentFolderId"`
}

// CreateEntryRequest holds parameters for creating an entry.
type CreateEntryRequest struct {
	Name            string                       `json:"name"`
	FolderID        string                       `json:"folderId"`
	EntryTemplateID string                       `json:"entryTemplateId,omitempty"`
	AuthorIDs       []string                     `json:"authorIds"`
	CustomFields    map[string]model.CustomField `json:"customFields"`
}
