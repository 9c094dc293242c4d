// Package export writes snapshots of folder references and assay type
// schemas as JSONL and ships them to S3 or a git repository.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/store"
)

// Version is the export format version written in the header.
const Version = "1"

// Record types written after the header.
const (
	TypeHeader    = "header"
	TypeFolderRef = "folder_ref"
	TypeSchema    = "assay_type_schema"
)

// Header is the first JSONL record written by ExportJSONL.
type Header struct {
	Version        string    `json:"version"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	FolderRefCount int       `json:"folder_ref_count"`
	SchemaCount    int       `json:"schema_count"`
}

// Record wraps a single JSONL line with a type discriminator.
type Record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every folder ref and schema in s to w. Refs are
// ordered by kind then record id, schemas by name.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	refs, err := s.ListFolderRefs(ctx, store.FolderRefFilter{})
	if err != nil {
		return fmt.Errorf("list folder refs: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].RecordKind != refs[j].RecordKind {
			return refs[i].RecordKind < refs[j].RecordKind
		}
		return refs[i].RecordID < refs[j].RecordID
	})

	schemas, err := s.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:        Version,
		Type:           TypeHeader,
		Timestamp:      time.Now().UTC(),
		FolderRefCount: len(refs),
		SchemaCount:    len(schemas),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, r := range refs {
		if err := enc.Encode(Record{Type: TypeFolderRef, Data: r}); err != nil {
			return fmt.Errorf("encode folder ref %s/%s: %w", r.RecordKind, r.RecordID, err)
		}
	}
	for _, sc := range schemas {
		if err := enc.Encode(Record{Type: TypeSchema, Data: sc}); err != nil {
			return fmt.Errorf("encode schema %q: %w", sc.Name, err)
		}
	}
	return nil
}
