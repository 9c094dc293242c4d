package model

import (
	"strings"
	"time"
)

// RecordKind identifies which kind of research record owns a folder.
type RecordKind string

const (
	RecordProgram RecordKind = "program"
	RecordStudy   RecordKind = "study"
	RecordAssay   RecordKind = "assay"
)

// String returns the string representation of the record kind.
func (k RecordKind) String() string {
	return string(k)
}

// IsValid checks whether the record kind is a known value.
func (k RecordKind) IsValid() bool {
	switch k {
	case RecordProgram, RecordStudy, RecordAssay:
		return true
	}
	return false
}

// ParseRecordKind parses a case-insensitive record kind.
func ParseRecordKind(s string) (RecordKind, bool) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.IsValid()
}

// User is an entry from the application's user directory.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Record is the subset of a program, study or assay that the notebook sync
// needs. Parent links an assay to its study and a study to its program.
type Record struct {
	ID          string     `json:"id"`
	Kind        RecordKind `json:"kind"`
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`

	// AssayType names the AssayTypeSchema an assay's Fields must satisfy.
	AssayType string   `json:"assay_type,omitempty"`
	Fields    FieldMap `json:"fields,omitempty"`

	// FolderID is a pre-existing notebook folder for programs, which cannot
	// be created remotely.
	FolderID string `json:"folder_id,omitempty"`

	Owner   *User   `json:"owner,omitempty"`
	Members []User  `json:"members,omitempty"`
	Parent  *Record `json:"parent,omitempty"`
}

// Team returns the owner followed by members, without duplicate usernames.
func (r *Record) Team() []User {
	seen := make(map[string]bool)
	var out []User
	add := func(u User) {
		key := u.ID + "\x00" + u.Username
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, u)
	}
	if r.Owner != nil {
		add(*r.Owner)
	}
	for _, m := range r.Members {
		add(m)
	}
	return out
}

// Ancestor returns the nearest ancestor of the given kind, or nil.
func (r *Record) Ancestor(kind RecordKind) *Record {
	for p := r.Parent; p != nil; p = p.Parent {
		if p.Kind == kind {
			return p
		}
	}
	return nil
}

// FolderRef is the durable link between a record and its notebook folder.
// There is at most one per (RecordKind, RecordID).
type FolderRef struct {
	ID         string     `json:"id"`
	RecordKind RecordKind `json:"record_kind"`
	RecordID   string     `json:"record_id"`
	URL        string     `json:"url,omitempty"`
	Name       string     `json:"name"`
	Path       string     `json:"path,omitempty"`
	ExternalID string     `json:"external_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsConfigured reports whether the ref points at an external folder.
func (r *FolderRef) IsConfigured() bool {
	return r != nil && strings.TrimSpace(r.ExternalID) != ""
}
