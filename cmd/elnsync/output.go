package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/ui"
)

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

func printFolderRef(ref *model.FolderRef) {
	fmt.Fprintf(stdout, "Record:     %s %s\n", ref.RecordKind, ref.RecordID)
	fmt.Fprintf(stdout, "Folder:     %s\n", ui.RenderAccent(ref.ExternalID))
	fmt.Fprintf(stdout, "Name:       %s\n", ref.Name)
	if ref.Path != "" {
		fmt.Fprintf(stdout, "Path:       %s\n", ref.Path)
	}
	if ref.URL != "" {
		fmt.Fprintf(stdout, "URL:        %s\n", ref.URL)
	}
	if !ref.UpdatedAt.IsZero() {
		fmt.Fprintf(stdout, "Updated At: %s\n", ui.RenderMuted(ref.UpdatedAt.Format("2006-01-02 15:04:05")))
	}
}

func printFolder(f *model.Folder) {
	fmt.Fprintf(stdout, "ID:         %s\n", ui.RenderAccent(f.ID))
	fmt.Fprintf(stdout, "Name:       %s\n", f.Name)
	if !f.IsRoot() {
		fmt.Fprintf(stdout, "Parent:     %s\n", f.ParentFolderID)
	}
	if f.ProjectID != "" {
		fmt.Fprintf(stdout, "Project:    %s\n", f.ProjectID)
	}
}

// printTree renders a folder tree with one line per folder and entry.
func printTree(t *model.FolderTree) {
	if t.Path != "" {
		fmt.Fprintln(stdout, ui.RenderMuted(t.Path))
	}
	t.Walk(func(n *model.FolderTree, depth int) bool {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(stdout, "%s%s/ %s\n", indent, n.Folder.Name, ui.RenderMuted(n.Folder.ID))
		for _, e := range n.Entries {
			fmt.Fprintf(stdout, "%s  %s %s\n", indent, e.Name, ui.RenderMuted(e.ID))
		}
		return true
	})
}

func printEntry(e *model.Entry) {
	fmt.Fprintf(stdout, "ID:         %s\n", ui.RenderAccent(e.ID))
	fmt.Fprintf(stdout, "Name:       %s\n", e.Name)
	fmt.Fprintf(stdout, "Folder:     %s\n", e.FolderID)
	if e.WebURL != "" {
		fmt.Fprintf(stdout, "URL:        %s\n", e.WebURL)
	}
}

func printSchema(s *model.AssayTypeSchema) {
	fmt.Fprintf(stdout, "Name:        %s\n", ui.RenderAccent(s.Name))
	if s.Description != "" {
		fmt.Fprintf(stdout, "Description: %s\n", s.Description)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(stdout, "Updated At:  %s\n", ui.RenderMuted(s.UpdatedAt.Format("2006-01-02 15:04:05")))
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tDISPLAY NAME\tTYPE\tREQUIRED")
	for _, d := range s.Fields {
		req := ""
		if d.Required {
			req = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.FieldName, d.DisplayName, d.Type, req)
	}
	w.Flush()
}

func printSchemaList(schemas []*model.AssayTypeSchema) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFIELDS\tDESCRIPTION")
	for _, s := range schemas {
		fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, len(s.Fields), truncate(s.Description, 50))
	}
	w.Flush()
	fmt.Fprintf(stdout, "\n%d schemas\n", len(schemas))
}

// printFieldErrors lists validation failures one per line.
func printFieldErrors(ve *model.ValidationError) {
	fmt.Fprintf(stdout, "%s\n", ui.RenderFailure("invalid: "+ve.Schema))
	for _, fe := range ve.Errors {
		fmt.Fprintf(stdout, "  %s %s\n", fe.Field, ui.RenderMuted(fe.Message))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
