package assay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

func elisaSchema() *model.AssayTypeSchema {
	return &model.AssayTypeSchema{
		Name: "elisa",
		Fields: []model.FieldDefinition{
			{FieldName: "count", DisplayName: "Count", Type: model.FieldTypeInteger, Required: true},
			{FieldName: "read_at", DisplayName: "Read At", Type: "date"},
		},
	}
}

func newTestRegistry() (*Registry, *mockStore) {
	st := newMockStore()
	r := NewRegistry(st, nil, nil)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r, st
}

func TestRegistry_Define(t *testing.T) {
	r, st := newTestRegistry()

	saved, err := r.Define(context.Background(), elisaSchema())
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if saved.Fields[1].Type != model.FieldTypeDate {
		t.Errorf("type = %q, want DATE", saved.Fields[1].Type)
	}
	if saved.CreatedAt.IsZero() || !saved.CreatedAt.Equal(saved.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", saved.CreatedAt, saved.UpdatedAt)
	}
	if _, ok := st.schemas["elisa"]; !ok {
		t.Error("schema not stored")
	}
}

func TestRegistry_Define_KeepsCreatedAt(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	first, err := r.Define(ctx, elisaSchema())
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	r.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	second, err := r.Define(ctx, elisaSchema())
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", second.CreatedAt, first.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v", second.UpdatedAt)
	}
}

func TestRegistry_Define_DuplicateFieldName(t *testing.T) {
	r, st := newTestRegistry()
	s := &model.AssayTypeSchema{
		Name: "dup",
		Fields: []model.FieldDefinition{
			{FieldName: "name", DisplayName: "Name", Type: model.FieldTypeString},
			{FieldName: "name", DisplayName: "Other Name", Type: model.FieldTypeString},
		},
	}

	_, err := r.Define(context.Background(), s)
	if !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("err = %v, want ErrInvalidSchema", err)
	}
	if st.saves != 0 {
		t.Errorf("saves = %d, want 0", st.saves)
	}
}

func TestRegistry_Define_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		schema *model.AssayTypeSchema
	}{
		{"nil", nil},
		{"blank name", &model.AssayTypeSchema{Name: " "}},
		{"missing type", &model.AssayTypeSchema{Name: "x", Fields: []model.FieldDefinition{{FieldName: "a", DisplayName: "A"}}}},
		{"unknown type", &model.AssayTypeSchema{Name: "x", Fields: []model.FieldDefinition{{FieldName: "a", DisplayName: "A", Type: "DECIMAL"}}}},
		{"duplicate display", &model.AssayTypeSchema{Name: "x", Fields: []model.FieldDefinition{
			{FieldName: "a", DisplayName: "Same", Type: model.FieldTypeText},
			{FieldName: "b", DisplayName: "Same", Type: model.FieldTypeText},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st := newTestRegistry()
			if _, err := r.Define(context.Background(), tt.schema); !errors.Is(err, model.ErrInvalidSchema) {
				t.Fatalf("err = %v, want ErrInvalidSchema", err)
			}
			if st.saves != 0 {
				t.Errorf("saves = %d, want 0", st.saves)
			}
		})
	}
}

func TestRegistry_DefineAll_Atomic(t *testing.T) {
	r, st := newTestRegistry()
	bad := &model.AssayTypeSchema{Name: "bad", Fields: []model.FieldDefinition{{FieldName: "a"}}}

	if _, err := r.DefineAll(context.Background(), []*model.AssayTypeSchema{elisaSchema(), bad}); !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("err = %v, want ErrInvalidSchema", err)
	}
	if len(st.schemas) != 0 {
		t.Errorf("schemas = %d, want 0", len(st.schemas))
	}

	saved, err := r.DefineAll(context.Background(), []*model.AssayTypeSchema{elisaSchema()})
	if err != nil || len(saved) != 1 {
		t.Fatalf("DefineAll = %v, %v", saved, err)
	}
}

func TestRegistry_GetDelete(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	if _, err := r.Get(ctx, "elisa"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}
	if _, err := r.Define(ctx, elisaSchema()); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if err := r.Delete(ctx, "elisa"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Delete(ctx, "elisa"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ValidateRecord(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()
	if _, err := r.Define(ctx, elisaSchema()); err != nil {
		t.Fatalf("Define: %v", err)
	}

	tests := []struct {
		name    string
		record  *model.Record
		wantErr error
	}{
		{
			name: "valid",
			record: &model.Record{Kind: model.RecordAssay, Name: "AS-1", AssayType: "elisa",
				Fields: model.FieldMap{"count": model.Integer(5), "read_at": model.Integer(1609567200000)}},
		},
		{
			name: "text count",
			record: &model.Record{Kind: model.RecordAssay, Name: "AS-1", AssayType: "elisa",
				Fields: model.FieldMap{"count": model.String("5"), "read_at": model.Null()}},
			wantErr: model.ErrInvalidSchema,
		},
		{
			name: "missing key",
			record: &model.Record{Kind: model.RecordAssay, Name: "AS-1", AssayType: "elisa",
				Fields: model.FieldMap{"count": model.Integer(5)}},
			wantErr: model.ErrInvalidSchema,
		},
		{
			name:    "unknown assay type",
			record:  &model.Record{Kind: model.RecordAssay, Name: "AS-1", AssayType: "pk"},
			wantErr: model.ErrNotFound,
		},
		{
			name:    "fields without type",
			record:  &model.Record{Kind: model.RecordAssay, Name: "AS-1", Fields: model.FieldMap{"x": model.Integer(1)}},
			wantErr: model.ErrMalformedEntity,
		},
		{
			name:   "study ignored",
			record: &model.Record{Kind: model.RecordStudy, Name: "ST-1", AssayType: "pk"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateRecord(ctx, tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateRecord: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_ValidateRecord_ReportsFirstViolation(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()
	if _, err := r.Define(ctx, elisaSchema()); err != nil {
		t.Fatalf("Define: %v", err)
	}

	err := r.ValidateRecord(ctx, &model.Record{
		Kind: model.RecordAssay, Name: "AS-9", AssayType: "elisa",
		Fields: model.FieldMap{"count": model.Null(), "read_at": model.String("not-a-date")},
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %T %v, want *ValidationError", err, err)
	}
	if ve.Record != "AS-9" || len(ve.Errors) != 2 {
		t.Fatalf("ValidationError = %+v", ve)
	}
	if first := ve.First(); first.Field != "count" {
		t.Errorf("first violation = %q, want count", first.Field)
	}
}
