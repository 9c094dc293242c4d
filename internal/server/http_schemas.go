package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// defineSchemaRequest is the body of PUT /v1/schemas/{name}. The name comes
// from the path.
type defineSchemaRequest struct {
	Description string                  `json:"description,omitempty"`
	Fields      []model.FieldDefinition `json:"fields"`
}

// validateRequest is the body of POST /v1/schemas/{name}/validate. Either a
// whole record or a bare field map may be sent.
type validateRequest struct {
	Record *model.Record  `json:"record,omitempty"`
	Name   string         `json:"name,omitempty"`
	Fields model.FieldMap `json:"fields,omitempty"`
}

// handleListSchemas handles GET /v1/schemas.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.registry.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if schemas == nil {
		schemas = []*model.AssayTypeSchema{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": schemas})
}

// handleGetSchema handles GET /v1/schemas/{name}.
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.registry.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// handleDefineSchema handles PUT /v1/schemas/{name}.
func (s *Server) handleDefineSchema(w http.ResponseWriter, r *http.Request) {
	var req defineSchemaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	schema, err := s.registry.Define(r.Context(), &model.AssayTypeSchema{
		Name:        r.PathValue("name"),
		Description: req.Description,
		Fields:      req.Fields,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// handleDeleteSchema handles DELETE /v1/schemas/{name}.
func (s *Server) handleDeleteSchema(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), r.PathValue("name")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleValidate handles POST /v1/schemas/{name}/validate. A passing check
// answers {"valid": true}; violations answer 422 with the field list.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	name := r.PathValue("name")

	var err error
	if req.Record != nil {
		rec := *req.Record
		if rec.Kind == "" {
			rec.Kind = model.RecordAssay
		}
		if rec.Kind != model.RecordAssay {
			s.writeServiceError(w, r, fmt.Errorf("%w: only assay records carry schema fields, got %s",
				model.ErrMalformedEntity, rec.Kind))
			return
		}
		if strings.TrimSpace(rec.AssayType) == "" {
			rec.AssayType = name
		}
		if !strings.EqualFold(strings.TrimSpace(rec.AssayType), strings.TrimSpace(name)) {
			s.writeServiceError(w, r, fmt.Errorf("%w: record assay type %q does not match %q",
				model.ErrMalformedEntity, rec.AssayType, name))
			return
		}
		err = s.registry.ValidateRecord(r.Context(), &rec)
	} else {
		err = s.registry.Validate(r.Context(), req.Name, name, req.Fields)
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":  false,
			"error":  ve.Error(),
			"fields": ve.Errors,
		})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}
