package notebook

import (
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// Custom field keys written on every entry.
const (
	FieldName        = "Name"
	FieldCode        = "Code"
	FieldDescription = "Description"
	FieldProgram     = "Program"
	FieldStatus      = "Status"
	FieldStartDate   = "Start Date"
	FieldStudy       = "Study"
	FieldAssayType   = "Assay Type"
)

const startDateLayout = "2006-01-02"

var textPolicy = bluemonday.StrictPolicy()

// StripHTML removes all markup from s and unescapes the remaining text.
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// EntryFields builds the custom field map for a record's entry. Name, Code
// and Description are always present. Studies add Program, Status and Start
// Date; assays add Study, Assay Type and one field per schema definition,
// keyed by display name. Fixed keys are never overwritten by schema fields.
func EntryFields(r *model.Record, schema *model.AssayTypeSchema) map[string]model.CustomField {
	fields := map[string]model.CustomField{
		FieldName:        {Value: r.Name},
		FieldCode:        {Value: r.Code},
		FieldDescription: {Value: StripHTML(r.Description)},
	}
	setIf := func(key, value string) {
		if value != "" {
			fields[key] = model.CustomField{Value: value}
		}
	}

	switch r.Kind {
	case model.RecordStudy:
		if p := r.Ancestor(model.RecordProgram); p != nil {
			setIf(FieldProgram, p.Name)
		}
		setIf(FieldStatus, r.Status)
		if r.StartDate != nil {
			setIf(FieldStartDate, r.StartDate.Format(startDateLayout))
		}
	case model.RecordAssay:
		if s := r.Ancestor(model.RecordStudy); s != nil {
			setIf(FieldStudy, s.Name)
		}
		setIf(FieldAssayType, r.AssayType)
		for key, value := range assayFields(r.Fields, schema) {
			if _, fixed := fields[key]; !fixed {
				fields[key] = model.CustomField{Value: value}
			}
		}
	}
	return fields
}

// assayFields renders non-null field values by display name. Without a
// schema the field names are used as keys.
func assayFields(values model.FieldMap, schema *model.AssayTypeSchema) map[string]string {
	out := make(map[string]string)
	if schema == nil {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := values[k]; !v.IsNull() {
				out[k] = v.Text()
			}
		}
		return out
	}
	for _, d := range schema.Fields {
		v, ok := values[d.FieldName]
		if !ok || v.IsNull() {
			continue
		}
		key := d.DisplayName
		if key == "" {
			key = d.FieldName
		}
		out[key] = v.Text()
	}
	return out
}
