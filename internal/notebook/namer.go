package notebook

import (
	"strings"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// Namer produces the display name of a record's folder and entry.
type Namer interface {
	FolderName(r *model.Record) string
}

// NamerFunc adapts a function to Namer.
type NamerFunc func(r *model.Record) string

func (f NamerFunc) FolderName(r *model.Record) string { return f(r) }

// CodeNamer names records "<code> <name>", or just the name when the record
// has no code.
var CodeNamer Namer = NamerFunc(func(r *model.Record) string {
	code, name := strings.TrimSpace(r.Code), strings.TrimSpace(r.Name)
	switch {
	case code == "":
		return name
	case name == "":
		return code
	}
	return code + " " + name
})

// OwnerNames returns the record names that follow the project segment in a
// folder path: the study then the assay for assays, the record alone
// otherwise.
func OwnerNames(r *model.Record) []string {
	if r == nil {
		return nil
	}
	if r.Kind == model.RecordAssay {
		if s := r.Ancestor(model.RecordStudy); s != nil {
			return []string{s.Name, r.Name}
		}
	}
	return []string{r.Name}
}
