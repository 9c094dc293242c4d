package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

const defaultTimeout = 30 * time.Second

// AuthorizationSource produces the Authorization header value for a request.
type AuthorizationSource interface {
	Authorization(ctx context.Context) (string, error)
}

// Options configures an HTTPClient.
type Options struct {
	RootURL    string // e.g. "https://tenant.notebook.example"; "/api/v2" is appended
	Auth       AuthorizationSource
	HTTPClient *http.Client
	Timeout    time.Duration // per request, used when HTTPClient is nil
	UserAgent  string
}

// HTTPClient implements NotebookClient against the notebook service's v2 REST API.
type HTTPClient struct {
	baseURL    string
	auth       AuthorizationSource
	httpClient *http.Client
	userAgent  string
}

// Compile-time check that HTTPClient implements NotebookClient.
var _ NotebookClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the API rooted at opts.RootURL.
func NewHTTPClient(opts Options) *HTTPClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.RootURL), "/") + "/api/v2",
		auth:       opts.Auth,
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(opts.UserAgent),
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Projects ---

func (c *HTTPClient) ListProjects(ctx context.Context, cursor string) ([]*model.Project, string, error) {
	return listPage[*model.Project](ctx, c, "/projects", "projects", pageQuery(cursor))
}

func (c *HTTPClient) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, nil, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Folders ---

func (c *HTTPClient) ListFolders(ctx context.Context, filter FolderFilter, cursor string) ([]*model.Folder, string, error) {
	q := pageQuery(cursor)
	setIfNotBlank(q, "parentFolderId", filter.ParentFolderID)
	setIfNotBlank(q, "projectId", filter.ProjectID)
	return listPage[*model.Folder](ctx, c, "/folders", "folders", q)
}

func (c *HTTPClient) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	if err := c.doJSON(ctx, http.MethodGet, "/folders/"+url.PathEscape(id), nil, nil, http.StatusOK, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *HTTPClient) CreateFolder(ctx context.Context, req *CreateFolderRequest) (*model.Folder, error) {
	var f model.Folder
	if err := c.doJSON(ctx, http.MethodPost, "/folders", nil, req, http.StatusCreated, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// --- Entries ---

func (c *HTTPClient) ListEntries(ctx context.Context, filter EntryFilter, cursor string) ([]*model.Entry, string, error) {
	q := pageQuery(cursor)
	setIfNotBlank(q, "projectId", filter.ProjectID)
	return listPage[*model.Entry](ctx, c, "/entries", "entries", q)
}

func (c *HTTPClient) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	var e model.Entry
	if err := c.doJSON(ctx, http.MethodGet, "/entries/"+url.PathEscape(id), nil, nil, http.StatusOK, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *HTTPClient) CreateEntry(ctx context.Context, req *CreateEntryRequest) (*model.Entry, error) {
	body := *req
	if body.AuthorIDs == nil {
		body.AuthorIDs = []string{}
	}
	if body.CustomFields == nil {
		body.CustomFields = map[string]model.CustomField{}
	}
	var e model.Entry
	if err := c.doJSON(ctx, http.MethodPost, "/entries", nil, &body, http.StatusCreated, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// --- Templates and schemas ---

func (c *HTTPClient) ListTemplates(ctx context.Context, cursor string) ([]*model.Template, string, error) {
	return listPage[*model.Template](ctx, c, "/entry-templates", "entryTemplates", pageQuery(cursor))
}

func (c *HTTPClient) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	var t model.Template
	if err := c.doJSON(ctx, http.MethodGet, "/entry-templates/"+url.PathEscape(id), nil, nil, http.StatusOK, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) ListEntrySchemas(ctx context.Context, cursor string) ([]*model.EntrySchema, string, error) {
	return listPage[*model.EntrySchema](ctx, c, "/entry-schemas", "entrySchemas", pageQuery(cursor))
}

func (c *HTTPClient) GetEntrySchema(ctx context.Context, id string) (*model.EntrySchema, error) {
	var s model.EntrySchema
	if err := c.doJSON(ctx, http.MethodGet, "/entry-schemas/"+url.PathEscape(id), nil, nil, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// --- Users ---

func (c *HTTPClient) ListUsers(ctx context.Context, filter UserFilter, cursor string) ([]*model.ExternalUser, string, error) {
	q := pageQuery(cursor)
	setIfNotBlank(q, "handles", filter.Handle)
	return listPage[*model.ExternalUser](ctx, c, "/users", "users", q)
}

func (c *HTTPClient) GetUser(ctx context.Context, id string) (*model.ExternalUser, error) {
	var u model.ExternalUser
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, http.StatusOK, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// --- internal helpers ---

// APIError represents a non-success response from the notebook service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is matches ErrExternalService, and ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	switch target {
	case model.ErrExternalService:
		return true
	case model.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func pageQuery(cursor string) url.Values {
	q := url.Values{}
	setIfNotBlank(q, "nextToken", cursor)
	return q
}

// setIfNotBlank omits blank query parameters instead of sending them empty.
func setIfNotBlank(q url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		q.Set(key, value)
	}
}

// listPage decodes a list response of the form {"<key>": [...], "nextToken": "..."}.
// A body without the list key is malformed; a null list is an empty page.
func listPage[T any](ctx context.Context, c *HTTPClient, path, key string, q url.Values) ([]T, string, error) {
	var raw map[string]json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, http.StatusOK, &raw); err != nil {
		return nil, "", err
	}
	data, ok := raw[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: response has no %q list", model.ErrExternalService, key)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, "", fmt.Errorf("%w: decoding %s: %w", model.ErrExternalService, key, err)
	}
	var next string
	if data, ok := raw["nextToken"]; ok {
		if err := json.Unmarshal(data, &next); err != nil {
			return nil, "", fmt.Errorf("%w: decoding nextToken: %w", model.ErrExternalService, err)
		}
	}
	return items, next, nil
}

// doJSON performs an authenticated request with an optional JSON body and
// decodes the JSON response into result. The response status must equal
// wantStatus. No request is sent when no authorization can be produced.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, body any, wantStatus int, result any) error {
	if c.auth == nil {
		return fmt.Errorf("%w: no authorization source configured", model.ErrAuthentication)
	}
	authorization, err := c.auth.Authorization(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", authorization)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", model.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", model.ErrUnavailable, err)
	}

	if resp.StatusCode != wantStatus {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: decoding response: %w", model.ErrExternalService, err)
		}
	}
	return nil
}

// errorMessage extracts a message from {"error": "..."} or
// {"error": {"message": "..."}} bodies, falling back to the raw body.
func errorMessage(status int, body []byte) string {
	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && len(errResp.Error) > 0 {
		var s string
		if json.Unmarshal(errResp.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.Unmarshal(errResp.Error, &obj) == nil && obj.Message != "" {
			if obj.Type != "" {
				return obj.Type + ": " + obj.Message
			}
			return obj.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}
	return msg
}
