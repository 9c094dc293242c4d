package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/assay"
	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/notebook"
	"github.com/alfredjeanlab/elnsync/internal/store/sqlite"
)

// fakeNotebook is an in-memory client.NotebookClient. Listings return
// everything on one page.
type fakeNotebook struct {
	mu        sync.Mutex
	folders   map[string]*model.Folder
	entries   []*model.Entry
	projects  []*model.Project
	users     []*model.ExternalUser
	templates []*model.Template
	nextID    int

	// failWith, when set, is returned by every call.
	failWith error
}

var _ client.NotebookClient = (*fakeNotebook)(nil)

func newFakeNotebook() *fakeNotebook {
	f := &fakeNotebook{folders: make(map[string]*model.Folder)}
	f.projects = []*model.Project{{ID: "pj_1", Name: "Oncology"}}
	f.folders["lib_prog"] = &model.Folder{ID: "lib_prog", Name: "PRG-1 Kinase", ParentFolderID: model.NoParentFolderID, ProjectID: "pj_1"}
	f.users = []*model.ExternalUser{{ID: "ent_ada", Name: "Ada", Handle: "ada", Email: "ada@example.com"}}
	f.templates = []*model.Template{{ID: "tmpl_1", Name: "Assay report"}}
	return f
}

func (f *fakeNotebook) ListProjects(context.Context, string) ([]*model.Project, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects, "", f.failWith
}

func (f *fakeNotebook) GetProject(_ context.Context, id string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project %s: %w", id, model.ErrNotFound)
}

func (f *fakeNotebook) ListFolders(_ context.Context, filter client.FolderFilter, _ string) ([]*model.Folder, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Folder
	for _, fo := range f.folders {
		if filter.ParentFolderID != "" && fo.ParentFolderID != filter.ParentFolderID {
			continue
		}
		if filter.ProjectID != "" && fo.ProjectID != filter.ProjectID {
			continue
		}
		out = append(out, fo)
	}
	return out, "", f.failWith
}

func (f *fakeNotebook) GetFolder(_ context.Context, id string) (*model.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	fo, ok := f.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, model.ErrNotFound)
	}
	return fo, nil
}

func (f *fakeNotebook) CreateFolder(_ context.Context, req *client.CreateFolderRequest) (*model.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	parent, ok := f.folders[req.ParentFolderID]
	if !ok {
		return nil, fmt.Errorf("parent %s: %w", req.ParentFolderID, model.ErrNotFound)
	}
	f.nextID++
	fo := &model.Folder{ID: "lib_new" + strconv.Itoa(f.nextID), Name: req.Name, ParentFolderID: parent.ID, ProjectID: parent.ProjectID}
	f.folders[fo.ID] = fo
	return fo, nil
}

func (f *fakeNotebook) ListEntries(context.Context, client.EntryFilter, string) ([]*model.Entry, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, "", f.failWith
}

func (f *fakeNotebook) GetEntry(_ context.Context, id string) (*model.Entry, error) {
	return nil, fmt.Errorf("entry %s: %w", id, model.ErrNotFound)
}

func (f *fakeNotebook) CreateEntry(_ context.Context, req *client.CreateEntryRequest) (*model.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.nextID++
	e := &model.Entry{
		ID:              "etr_" + strconv.Itoa(f.nextID),
		Name:            req.Name,
		FolderID:        req.FolderID,
		CustomFields:    req.CustomFields,
		EntryTemplateID: req.EntryTemplateID,
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeNotebook) ListTemplates(context.Context, string) ([]*model.Template, string, error) {
	return f.templates, "", f.failWith
}

func (f *fakeNotebook) GetTemplate(_ context.Context, id string) (*model.Template, error) {
	return nil, fmt.Errorf("template %s: %w", id, model.ErrNotFound)
}

func (f *fakeNotebook) ListEntrySchemas(context.Context, string) ([]*model.EntrySchema, string, error) {
	return nil, "", f.failWith
}

func (f *fakeNotebook) GetEntrySchema(_ context.Context, id string) (*model.EntrySchema, error) {
	return nil, fmt.Errorf("entry schema %s: %w", id, model.ErrNotFound)
}

func (f *fakeNotebook) ListUsers(_ context.Context, filter client.UserFilter, _ string) ([]*model.ExternalUser, string, error) {
	if f.failWith != nil {
		return nil, "", f.failWith
	}
	var out []*model.ExternalUser
	for _, u := range f.users {
		if filter.Handle != "" && u.Handle != filter.Handle {
			continue
		}
		out = append(out, u)
	}
	return out, "", nil
}

func (f *fakeNotebook) GetUser(_ context.Context, id string) (*model.ExternalUser, error) {
	return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
}

func (f *fakeNotebook) Close() error { return nil }

func (f *fakeNotebook) setFailure(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv is a server wired to a fake notebook and an in-memory SQLite store.
type testEnv struct {
	fake     *fakeNotebook
	registry *assay.Registry
	stream   *EventStream
	handler  http.Handler
}

func newTestEnv(t *testing.T, opts HTTPOptions) *testEnv {
	t.Helper()
	st, err := sqlite.New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := testLogger()
	stream := NewEventStream(logger)
	pub := stream.Publisher(nil)
	fake := newFakeNotebook()
	nb := notebook.NewService(fake, st, pub, notebook.Config{
		Tenant:          "acme.notebook.example",
		ProgramFolderID: "lib_prog",
		DirectoryTTL:    time.Hour,
	}, logger)
	reg := assay.NewRegistry(st, pub, logger)
	srv := New(nb, reg, stream, logger)
	return &testEnv{fake: fake, registry: reg, stream: stream, handler: srv.NewHTTPHandler(opts)}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}
