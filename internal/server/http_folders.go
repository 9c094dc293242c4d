package server

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/notebook"
)

// recordRequest carries a record for folder creation or schema validation.
type recordRequest struct {
	Record *model.Record `json:"record"`
}

func (r recordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Record, validation.NotNil),
	)
}

// createEntryRequest is the body of POST /v1/entries.
type createEntryRequest struct {
	Record     *model.Record `json:"record"`
	TemplateID string        `json:"template_id,omitempty"`
}

func (r createEntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Record, validation.NotNil),
	)
}

// repairFolderRequest is the body of PUT /v1/records/{kind}/{id}/folder.
type repairFolderRequest struct {
	FolderID   string   `json:"folder_id"`
	OwnerNames []string `json:"owner_names,omitempty"`
}

func (r repairFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FolderID, validation.Required),
	)
}

// decodeRequest decodes and validates a request body, mapping both kinds of
// failure onto ErrMalformedEntity.
func decodeRequest(w http.ResponseWriter, r *http.Request, v validation.Validatable) error {
	if err := decodeJSON(w, r, v); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return malformed(err)
	}
	return nil
}

// requireNotebook writes 503 and returns false when no notebook is
// configured.
func (s *Server) requireNotebook(w http.ResponseWriter) bool {
	if s.notebook == nil {
		writeError(w, http.StatusServiceUnavailable, "notebook is not configured")
		return false
	}
	return true
}

// handleGetRecordFolder handles GET /v1/records/{kind}/{id}/folder.
// It returns the stored reference and the live folder it points at.
func (s *Server) handleGetRecordFolder(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	kind, err := pathKind(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ref, err := s.notebook.Ref(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	folder, err := s.notebook.FindFolder(r.Context(), ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "folder": folder})
}

// handleGetRecordTree handles GET /v1/records/{kind}/{id}/tree. Repeated
// "name" query parameters supply the owner names used in the tree path.
func (s *Server) handleGetRecordTree(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	kind, err := pathKind(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ref, err := s.notebook.Ref(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	tree, err := s.notebook.FindFullFolder(r.Context(), ref, r.URL.Query()["name"]...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// handleCreateFolder handles POST /v1/folders. It answers 201 when a folder
// was created or linked and 200 when the record already had one.
func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	var req recordRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if s.registry != nil {
		if err := s.registry.ValidateRecord(r.Context(), req.Record); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	res, err := s.notebook.CreateFolderForRecord(r.Context(), req.Record)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.State == notebook.StateCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// handleRepairFolder handles PUT /v1/records/{kind}/{id}/folder.
func (s *Server) handleRepairFolder(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	kind, err := pathKind(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req repairFolderRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ref, err := s.notebook.RepairFolderRef(r.Context(), kind, r.PathValue("id"), req.FolderID, req.OwnerNames...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// handleCreateEntry handles POST /v1/entries.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	var req createEntryRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if s.registry != nil {
		if err := s.registry.ValidateRecord(r.Context(), req.Record); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	entry, err := s.notebook.CreateEntryForRecord(r.Context(), req.Record, req.TemplateID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
