package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var folderRefRowColumns = []string{
	"id", "record_kind", "record_id", "url", "name", "path", "external_id", "created_at", "updated_at",
}

var schemaRowColumns = []string{"name", "description", "fields", "created_at", "updated_at"}

func TestScanHelpers(t *testing.T) {
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}
	if f := schemaFields(&model.AssayTypeSchema{}); f == nil || len(f) != 0 {
		t.Errorf("schemaFields(empty) = %#v, want empty slice", f)
	}
}

func TestQueryCreateFolderRef(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	ref := &model.FolderRef{
		ID: "fr-abc", RecordKind: model.RecordStudy, RecordID: "st-1",
		URL: "https://acme.eln.example/folders/lib_2", Name: "ST-1 Dose", ExternalID: "lib_2",
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec("INSERT INTO folder_refs").
		WithArgs("fr-abc", "study", "st-1", "https://acme.eln.example/folders/lib_2", "ST-1 Dose", nil, "lib_2", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateFolderRef(context.Background(), db, ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetFolderRef(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM folder_refs WHERE record_kind = \\$1 AND record_id = \\$2").
		WithArgs("assay", "as-1").
		WillReturnRows(sqlmock.NewRows(folderRefRowColumns).
			AddRow("fr-1", "assay", "as-1", nil, "AS-1 Binding", "Oncology / ST-1 / AS-1", "lib_9", now, now))

	ref, err := queryGetFolderRef(context.Background(), db, model.RecordAssay, "as-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.RecordKind != model.RecordAssay || ref.ExternalID != "lib_9" {
		t.Fatalf("got %+v", ref)
	}
	if ref.URL != "" || ref.Path != "Oncology / ST-1 / AS-1" {
		t.Fatalf("url=%q path=%q", ref.URL, ref.Path)
	}
}

func TestQueryGetFolderRef_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM folder_refs").WithArgs("study", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := queryGetFolderRef(context.Background(), db, model.RecordStudy, "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryGetFolderRef_DatabaseError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT .+ FROM folder_refs").WithArgs("study", "st-1").WillReturnError(boom)

	_, err := queryGetFolderRef(context.Background(), db, model.RecordStudy, "st-1")
	if !errors.Is(err, boom) || errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestQueryUpdateFolderRef(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	ref := &model.FolderRef{RecordKind: model.RecordStudy, RecordID: "st-1", Name: "ST-1", ExternalID: "lib_3", UpdatedAt: now}
	mock.ExpectExec("UPDATE folder_refs SET").
		WithArgs("study", "st-1", nil, "ST-1", nil, "lib_3", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryUpdateFolderRef(context.Background(), db, ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryUpdateFolderRef_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE folder_refs SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryUpdateFolderRef(context.Background(), db, &model.FolderRef{RecordKind: model.RecordStudy, RecordID: "gone"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryDeleteFolderRef(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM folder_refs").WithArgs("assay", "as-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM folder_refs").WithArgs("assay", "as-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := queryDeleteFolderRef(ctx, db, model.RecordAssay, "as-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := queryDeleteFolderRef(ctx, db, model.RecordAssay, "as-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryListFolderRefs(t *testing.T) {
	now := time.Now().UTC()
	for _, tc := range []struct {
		name   string
		filter store.FolderRefFilter
		query  string
		args   []driver.Value
	}{
		{"all", store.FolderRefFilter{}, "SELECT .+ FROM folder_refs ORDER BY record_kind, record_id$", nil},
		{"kind", store.FolderRefFilter{Kind: model.RecordStudy}, "WHERE record_kind = \\$1 ORDER BY", []driver.Value{"study"}},
		{
			"kind external limit",
			store.FolderRefFilter{Kind: model.RecordAssay, ExternalID: "lib_1", Limit: 5},
			"WHERE record_kind = \\$1 AND external_id = \\$2 ORDER BY record_kind, record_id LIMIT \\$3",
			[]driver.Value{"assay", "lib_1", 5},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			exp := mock.ExpectQuery(tc.query)
			if tc.args != nil {
				exp = exp.WithArgs(tc.args...)
			}
			exp.WillReturnRows(sqlmock.NewRows(folderRefRowColumns).
				AddRow("fr-1", "study", "st-1", nil, "ST-1", nil, "lib_1", now, now).
				AddRow("fr-2", "study", "st-2", nil, "ST-2", nil, "lib_2", now, now))

			refs, err := queryListFolderRefs(context.Background(), db, tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(refs) != 2 || refs[1].RecordID != "st-2" {
				t.Fatalf("got %d refs", len(refs))
			}
		})
	}
}

func TestQuerySaveSchema(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	s := &model.AssayTypeSchema{
		Name: "elisa",
		Fields: []model.FieldDefinition{
			{FieldName: "count", DisplayName: "Count", Type: model.FieldTypeInteger, Required: true},
		},
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec("INSERT INTO assay_type_schemas .+ ON CONFLICT \\(name\\) DO UPDATE").
		WithArgs("elisa", nil,
			[]byte(`[{"display_name":"Count","field_name":"count","type":"INTEGER","required":true}]`),
			now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := querySaveSchema(context.Background(), db, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetSchema(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM assay_type_schemas WHERE name = \\$1").WithArgs("elisa").
		WillReturnRows(sqlmock.NewRows(schemaRowColumns).
			AddRow("elisa", "Plate reads", []byte(`[{"display_name":"Count","field_name":"count","type":"INTEGER"}]`), now, now))

	s, err := queryGetSchema(context.Background(), db, "elisa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Description != "Plate reads" || len(s.Fields) != 1 || s.Fields[0].Type != model.FieldTypeInteger {
		t.Fatalf("got %+v", s)
	}
}

func TestQueryGetSchema_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM assay_type_schemas").WithArgs("pk").WillReturnError(sql.ErrNoRows)

	if _, err := queryGetSchema(context.Background(), db, "pk"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryGetSchema_BadFields(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM assay_type_schemas").WithArgs("elisa").
		WillReturnRows(sqlmock.NewRows(schemaRowColumns).AddRow("elisa", nil, []byte(`{`), now, now))

	_, err := queryGetSchema(context.Background(), db, "elisa")
	if err == nil || errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestQueryListSchemas(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM assay_type_schemas ORDER BY name").
		WillReturnRows(sqlmock.NewRows(schemaRowColumns).
			AddRow("elisa", nil, []byte(`[]`), now, now).
			AddRow("pk", nil, nil, now, now))

	schemas, err := queryListSchemas(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schemas) != 2 || schemas[1].Fields == nil {
		t.Fatalf("got %+v", schemas)
	}
}

func TestQueryDeleteSchema_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM assay_type_schemas").WithArgs("pk").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryDeleteSchema(context.Background(), db, "pk"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM assay_type_schemas").WithArgs("elisa").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.DeleteSchema(context.Background(), "elisa")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM assay_type_schemas").WithArgs("elisa").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.DeleteSchema(context.Background(), "elisa")
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
