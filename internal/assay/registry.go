// Package assay manages assay type schemas and validates assay records
// against them.
package assay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/events"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// Registry defines, looks up and applies assay type schemas.
type Registry struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistry creates a Registry backed by st. A nil publisher disables events.
func NewRegistry(st store.Store, pub events.Publisher, logger *slog.Logger) *Registry {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: st, publisher: pub, logger: logger, now: time.Now}
}

// Define validates a schema and stores it, replacing any schema of the same
// name. Invalid schemas are never stored.
func (r *Registry) Define(ctx context.Context, s *model.AssayTypeSchema) (*model.AssayTypeSchema, error) {
	saved, err := r.define(ctx, r.store, s)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, events.TopicSchemaDefined, events.SchemaDefined{Schema: saved})
	return saved, nil
}

// DefineAll defines every schema in one transaction. Nothing is stored
// unless all of them are valid.
func (r *Registry) DefineAll(ctx context.Context, schemas []*model.AssayTypeSchema) ([]*model.AssayTypeSchema, error) {
	var saved []*model.AssayTypeSchema
	err := r.store.RunInTransaction(ctx, func(tx store.Store) error {
		saved = saved[:0]
		for _, s := range schemas {
			out, err := r.define(ctx, tx, s)
			if err != nil {
				return err
			}
			saved = append(saved, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, s := range saved {
		r.publish(ctx, events.TopicSchemaDefined, events.SchemaDefined{Schema: s})
	}
	return saved, nil
}

func (r *Registry) define(ctx context.Context, st store.Store, in *model.AssayTypeSchema) (*model.AssayTypeSchema, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil schema", model.ErrInvalidSchema)
	}
	s := normalize(in)
	if err := model.ValidateSchema(s); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	existing, err := st.GetSchema(ctx, s.Name)
	switch {
	case err == nil:
		s.CreatedAt = existing.CreatedAt
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("get schema %q: %w", s.Name, err)
	}
	if err := st.SaveSchema(ctx, s); err != nil {
		return nil, fmt.Errorf("save schema %q: %w", s.Name, err)
	}
	return s, nil
}

// normalize returns a copy with trimmed names and upper-cased types.
func normalize(in *model.AssayTypeSchema) *model.AssayTypeSchema {
	s := *in
	s.Name = strings.TrimSpace(s.Name)
	s.Fields = make([]model.FieldDefinition, len(in.Fields))
	for i, d := range in.Fields {
		d.FieldName = strings.TrimSpace(d.FieldName)
		d.DisplayName = strings.TrimSpace(d.DisplayName)
		if t, ok := model.ParseFieldType(string(d.Type)); ok {
			d.Type = t
		}
		s.Fields[i] = d
	}
	return &s
}

// Get returns the schema with the given name.
func (r *Registry) Get(ctx context.Context, name string) (*model.AssayTypeSchema, error) {
	s, err := r.store.GetSchema(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("assay type %q: %w", name, err)
	}
	return s, nil
}

// List returns all schemas ordered by name.
func (r *Registry) List(ctx context.Context) ([]*model.AssayTypeSchema, error) {
	return r.store.ListSchemas(ctx)
}

// Delete removes a schema. Records already validated against it are not
// touched.
func (r *Registry) Delete(ctx context.Context, name string) error {
	if _, err := r.Get(ctx, name); err != nil {
		return err
	}
	if err := r.store.DeleteSchema(ctx, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("delete schema %q: %w", name, err)
	}
	r.publish(ctx, events.TopicSchemaDeleted, events.SchemaDeleted{Name: name, DeletedAt: r.now().UTC()})
	return nil
}

// Validate checks fields against the named schema.
func (r *Registry) Validate(ctx context.Context, record, assayType string, fields model.FieldMap) error {
	s, err := r.Get(ctx, assayType)
	if err != nil {
		return err
	}
	return model.ValidateFields(record, fields, s)
}

// ValidateRecord checks an assay record's fields against the schema named
// by its AssayType. Programs and studies carry no custom fields and always
// pass.
func (r *Registry) ValidateRecord(ctx context.Context, rec *model.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", model.ErrMalformedEntity)
	}
	if rec.Kind != model.RecordAssay {
		return nil
	}
	if strings.TrimSpace(rec.AssayType) == "" {
		if len(rec.Fields) == 0 {
			return nil
		}
		return fmt.Errorf("%w: assay %q has fields but no assay type", model.ErrMalformedEntity, rec.Name)
	}
	return r.Validate(ctx, rec.Name, rec.AssayType, rec.Fields)
}

func (r *Registry) publish(ctx context.Context, topic string, event any) {
	if err := r.publisher.Publish(ctx, topic, event); err != nil {
		r.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}
