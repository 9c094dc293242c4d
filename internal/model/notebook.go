package model

import "time"

// NoParentFolderID is the sentinel the notebook service uses for the
// parent of a project's top-level folders.
const NoParentFolderID = "NO_PARENT"

// Folder is a folder in the external notebook. Folders form a forest with
// one set of roots per project.
type Folder struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ParentFolderID string `json:"parentFolderId,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
}

// IsRoot reports whether the folder has no parent folder.
func (f *Folder) IsRoot() bool {
	return f.ParentFolderID == "" || f.ParentFolderID == NoParentFolderID
}

// CustomField is a single value in an entry's custom field map.
type CustomField struct {
	Value string `json:"value"`
}

// Entry is a notebook entry living in exactly one folder.
type Entry struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	DisplayID       string                 `json:"displayId,omitempty"`
	FolderID        string                 `json:"folderId"`
	WebURL          string                 `json:"webURL,omitempty"`
	Authors         []ExternalUser         `json:"authors,omitempty"`
	CustomFields    map[string]CustomField `json:"customFields,omitempty"`
	EntryTemplateID string                 `json:"entryTemplateId,omitempty"`
	CreatedAt       *time.Time             `json:"createdAt,omitempty"`
	ModifiedAt      *time.Time             `json:"modifiedAt,omitempty"`
}

// Template is a reusable entry skeleton referenced by id when creating an entry.
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FolderID string `json:"folderId,omitempty"`
}

// EntrySchema describes a typed entry layout defined in the notebook service.
type EntrySchema struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prefix string `json:"prefix,omitempty"`
}

// Project is the external top-level grouping. Every folder traces to one project.
type Project struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Owner *ExternalUser `json:"owner,omitempty"`
}

// ExternalUser is an account in the notebook service.
type ExternalUser struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Handle string `json:"handle,omitempty"`
	Email  string `json:"email,omitempty"`
}
