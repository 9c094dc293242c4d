package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// handleListTemplates handles GET /v1/templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	templates, err := s.notebook.ListTemplates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if templates == nil {
		templates = []*model.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// handleListProjects handles GET /v1/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	projects, err := s.notebook.ListProjects(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleResolveUser handles GET /v1/users/resolve?username=&email=. An
// unmatched user answers 404. refresh=true drops the cached directory first.
func (s *Server) handleResolveUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireNotebook(w) {
		return
	}
	q := r.URL.Query()
	u := model.User{
		Username: strings.TrimSpace(q.Get("username")),
		Email:    strings.TrimSpace(q.Get("email")),
	}
	if u.Username == "" && u.Email == "" {
		s.writeServiceError(w, r, fmt.Errorf("%w: username or email is required", model.ErrMalformedEntity))
		return
	}
	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		s.notebook.Users().Invalidate()
	}
	ext, ok, err := s.notebook.Users().Resolve(r.Context(), u)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		s.writeServiceError(w, r, fmt.Errorf("%w: no notebook account for %q", model.ErrNotFound, firstNonEmpty(u.Username, u.Email)))
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
