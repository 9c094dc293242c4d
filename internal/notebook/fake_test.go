package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// fakeELN is an in-memory notebook service speaking the v2 REST API.
type fakeELN struct {
	mu        sync.Mutex
	folders   []*model.Folder
	entries   []*model.Entry
	projects  []*model.Project
	users     []*model.ExternalUser
	templates []*model.Template
	schemas   []*model.EntrySchema

	pageSize       int  // items per list page; 0 means everything on one page
	ignoreHandles  bool // handle-filtered user listings return nothing
	failUsers      bool
	createStatus   int // overrides 201 for POST requests
	requests       []string
	createdEntries []map[string]any
	nextID         int
}

func (f *fakeELN) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/folders", func(w http.ResponseWriter, r *http.Request) {
		parent, project := r.URL.Query().Get("parentFolderId"), r.URL.Query().Get("projectId")
		var out []*model.Folder
		for _, fo := range f.folders {
			if parent != "" && fo.ParentFolderID != parent {
				continue
			}
			if project != "" && fo.ProjectID != project {
				continue
			}
			out = append(out, fo)
		}
		writePage(w, r, "folders", out, f.pageSize)
	})
	mux.HandleFunc("GET /api/v2/folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, fo := range f.folders {
			if fo.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, fo)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "folder not found"})
	})
	mux.HandleFunc("POST /api/v2/folders", func(w http.ResponseWriter, r *http.Request) {
		var req client.CreateFolderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if f.createStatus != 0 {
			writeJSON(w, f.createStatus, map[string]string{"error": "rejected"})
			return
		}
		var project string
		for _, fo := range f.folders {
			if fo.ID == req.ParentFolderID {
				project = fo.ProjectID
			}
		}
		f.nextID++
		fo := &model.Folder{ID: "lib_new" + strconv.Itoa(f.nextID), Name: req.Name, ParentFolderID: req.ParentFolderID, ProjectID: project}
		f.folders = append(f.folders, fo)
		writeJSON(w, http.StatusCreated, fo)
	})
	mux.HandleFunc("GET /api/v2/entries", func(w http.ResponseWriter, r *http.Request) {
		project := r.URL.Query().Get("projectId")
		var out []*model.Entry
		for _, e := range f.entries {
			if project != "" && f.projectOf(e.FolderID) != project {
				continue
			}
			out = append(out, e)
		}
		writePage(w, r, "entries", out, f.pageSize)
	})
	mux.HandleFunc("POST /api/v2/entries", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.createStatus != 0 {
			writeJSON(w, f.createStatus, map[string]string{"error": "rejected"})
			return
		}
		f.createdEntries = append(f.createdEntries, body)
		f.nextID++
		id := "etr_new" + strconv.Itoa(f.nextID)
		name, _ := body["name"].(string)
		folderID, _ := body["folderId"].(string)
		writeJSON(w, http.StatusCreated, &model.Entry{ID: id, Name: name, FolderID: folderID, WebURL: "https://acme.notebook.example/" + id})
	})
	mux.HandleFunc("GET /api/v2/projects", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, "projects", f.projects, f.pageSize)
	})
	mux.HandleFunc("GET /api/v2/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range f.projects {
			if p.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
	})
	mux.HandleFunc("GET /api/v2/users", func(w http.ResponseWriter, r *http.Request) {
		if f.failUsers {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "directory down"})
			return
		}
		handle := r.URL.Query().Get("handles")
		var out []*model.ExternalUser
		for _, u := range f.users {
			if handle != "" && (f.ignoreHandles || u.Handle != handle) {
				continue
			}
			out = append(out, u)
		}
		writePage(w, r, "users", out, f.pageSize)
	})
	mux.HandleFunc("GET /api/v2/entry-templates", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, "entryTemplates", f.templates, f.pageSize)
	})
	mux.HandleFunc("GET /api/v2/entry-schemas", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, "entrySchemas", f.schemas, f.pageSize)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		line := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			line += "?" + r.URL.RawQuery
		}
		f.requests = append(f.requests, line)
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeELN) projectOf(folderID string) string {
	for _, fo := range f.folders {
		if fo.ID == folderID {
			return fo.ProjectID
		}
	}
	return ""
}

// requestLog returns a copy of the requests seen so far.
func (f *fakeELN) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeELN) countRequests(prefix string) int {
	n := 0
	for _, line := range f.requestLog() {
		if len(line) >= len(prefix) && line[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func writePage[T any](w http.ResponseWriter, r *http.Request, key string, items []T, size int) {
	start, _ := strconv.Atoi(r.URL.Query().Get("nextToken"))
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if size > 0 && start+size < end {
		end = start + size
	}
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	page := items[start:end]
	if page == nil {
		page = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{key: page, "nextToken": next})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newFakeClient starts f and returns an HTTP client authorized with a static token.
func newFakeClient(t *testing.T, f *fakeELN) *client.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	auth := client.NewAuthorizer(srv.URL, client.Credentials{Token: "dGVzdA=="})
	return client.NewHTTPClient(client.Options{RootURL: srv.URL, Auth: auth})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory store.Store.
type memStore struct {
	mu      sync.Mutex
	refs    map[string]*model.FolderRef
	schemas map[string]*model.AssayTypeSchema
	failing error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		refs:    make(map[string]*model.FolderRef),
		schemas: make(map[string]*model.AssayTypeSchema),
	}
}

func refKey(kind model.RecordKind, id string) string { return string(kind) + "/" + id }

func (m *memStore) CreateFolderRef(_ context.Context, ref *model.FolderRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	key := refKey(ref.RecordKind, ref.RecordID)
	if _, ok := m.refs[key]; ok {
		return fmt.Errorf("duplicate folder ref %s", key)
	}
	cp := *ref
	m.refs[key] = &cp
	return nil
}

func (m *memStore) GetFolderRef(_ context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[refKey(kind, recordID)]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *ref
	return &cp, nil
}

func (m *memStore) UpdateFolderRef(_ context.Context, ref *model.FolderRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	key := refKey(ref.RecordKind, ref.RecordID)
	if _, ok := m.refs[key]; !ok {
		return model.ErrNotFound
	}
	cp := *ref
	m.refs[key] = &cp
	return nil
}

func (m *memStore) DeleteFolderRef(_ context.Context, kind model.RecordKind, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refs, refKey(kind, recordID))
	return nil
}

func (m *memStore) ListFolderRefs(_ context.Context, filter store.FolderRefFilter) ([]*model.FolderRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.FolderRef
	for _, ref := range m.refs {
		if filter.Kind != "" && ref.RecordKind != filter.Kind {
			continue
		}
		cp := *ref
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SaveSchema(_ context.Context, s *model.AssayTypeSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[s.Name] = s
	return nil
}

func (m *memStore) GetSchema(_ context.Context, name string) (*model.AssayTypeSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schemas[name]
	if !ok {
		return nil, model.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListSchemas(context.Context) ([]*model.AssayTypeSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AssayTypeSchema
	for _, s := range m.schemas {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) DeleteSchema(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schemas, name)
	return nil
}

func (m *memStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *memStore) Close() error { return nil }

// recordingPublisher captures published topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
