package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// HTTPOptions configures NewHTTPHandler.
type HTTPOptions struct {
	// AuthToken, when set, is required as a Bearer token on every route
	// except GET /v1/health.
	AuthToken string
	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string
}

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *Server) NewHTTPHandler(opts HTTPOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("GET /v1/records/{kind}/{id}/folder", s.handleGetRecordFolder)
	mux.HandleFunc("PUT /v1/records/{kind}/{id}/folder", s.handleRepairFolder)
	mux.HandleFunc("GET /v1/records/{kind}/{id}/tree", s.handleGetRecordTree)
	mux.HandleFunc("POST /v1/folders", s.handleCreateFolder)
	mux.HandleFunc("POST /v1/entries", s.handleCreateEntry)

	mux.HandleFunc("GET /v1/schemas", s.handleListSchemas)
	mux.HandleFunc("GET /v1/schemas/{name}", s.handleGetSchema)
	mux.HandleFunc("PUT /v1/schemas/{name}", s.handleDefineSchema)
	mux.HandleFunc("DELETE /v1/schemas/{name}", s.handleDeleteSchema)
	mux.HandleFunc("POST /v1/schemas/{name}/validate", s.handleValidate)

	mux.HandleFunc("GET /v1/templates", s.handleListTemplates)
	mux.HandleFunc("GET /v1/projects", s.handleListProjects)
	mux.HandleFunc("GET /v1/users/resolve", s.handleResolveUser)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	var h http.Handler = AuthMiddleware(opts.AuthToken, mux)
	if len(opts.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
		}).Handler(h)
	}
	return RequestIDMiddleware(s.logger, h)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"notebook": s.notebook != nil,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// errorResponse is the body written by writeServiceError.
type errorResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

// statusFor maps the error taxonomy onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotConfigured):
		return http.StatusNotFound, "not_configured"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidSchema):
		return http.StatusUnprocessableEntity, "invalid_schema"
	case errors.Is(err, model.ErrMalformedEntity):
		return http.StatusBadRequest, "malformed_entity"
	case errors.Is(err, model.ErrAuthentication):
		return http.StatusBadGateway, "authentication"
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, model.ErrLimitExceeded):
		return http.StatusBadGateway, "limit_exceeded"
	case errors.Is(err, model.ErrCycleDetected):
		return http.StatusBadGateway, "cycle_detected"
	case errors.Is(err, model.ErrExternalService):
		return http.StatusBadGateway, "external_service"
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError writes err with the status its taxonomy maps to.
// Validation errors carry their field list.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: err.Error(), Code: code}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Errors
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestID(r.Context()), "err", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON body of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", model.ErrMalformedEntity, err)
	}
	return nil
}

// malformed marks a request validation failure.
func malformed(err error) error {
	return fmt.Errorf("%w: %v", model.ErrMalformedEntity, err)
}

// pathKind parses the {kind} path value.
func pathKind(r *http.Request) (model.RecordKind, error) {
	kind, ok := model.ParseRecordKind(r.PathValue("kind"))
	if !ok {
		return "", fmt.Errorf("%w: unknown record kind %q", model.ErrMalformedEntity, r.PathValue("kind"))
	}
	return kind, nil
}

// queryList returns every non-blank value of a repeated or comma-separated
// query parameter.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
