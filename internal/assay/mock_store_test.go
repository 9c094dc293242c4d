package assay

import (
	"context"
	"sort"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// mockStore is a minimal in-memory store for registry tests. Transactions
// work on a copy that replaces the schemas only when fn succeeds.
type mockStore struct {
	schemas map[string]*model.AssayTypeSchema
	saves   int
}

func newMockStore() *mockStore {
	return &mockStore{schemas: make(map[string]*model.AssayTypeSchema)}
}

func (m *mockStore) CreateFolderRef(context.Context, *model.FolderRef) error { return nil }

func (m *mockStore) GetFolderRef(context.Context, model.RecordKind, string) (*model.FolderRef, error) {
	return nil, model.ErrNotFound
}

func (m *mockStore) UpdateFolderRef(context.Context, *model.FolderRef) error { return nil }

func (m *mockStore) DeleteFolderRef(context.Context, model.RecordKind, string) error { return nil }

func (m *mockStore) ListFolderRefs(context.Context, store.FolderRefFilter) ([]*model.FolderRef, error) {
	return nil, nil
}

func (m *mockStore) SaveSchema(_ context.Context, s *model.AssayTypeSchema) error {
	m.saves++
	cp := *s
	m.schemas[s.Name] = &cp
	return nil
}

func (m *mockStore) GetSchema(_ context.Context, name string) (*model.AssayTypeSchema, error) {
	s, ok := m.schemas[name]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) ListSchemas(context.Context) ([]*model.AssayTypeSchema, error) {
	out := make([]*model.AssayTypeSchema, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) DeleteSchema(_ context.Context, name string) error {
	delete(m.schemas, name)
	return nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	tx := newMockStore()
	for k, v := range m.schemas {
		tx.schemas[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.schemas = tx.schemas
	m.saves += tx.saves
	return nil
}

func (m *mockStore) Close() error { return nil }
