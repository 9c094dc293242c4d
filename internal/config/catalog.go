package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

// ErrUnsupportedCatalog is returned for catalog files that are neither TOML
// nor YAML.
var ErrUnsupportedCatalog = errors.New("unsupported catalog format")

// Catalog is a file of assay type schemas.
//
//	[[schemas]]
//	name = "elisa"
//	  [[schemas.fields]]
//	  field_name = "count"
//	  display_name = "Count"
//	  type = "INTEGER"
type Catalog struct {
	Schemas []*model.AssayTypeSchema `toml:"schemas" yaml:"schemas" json:"schemas"`
}

var (
	catalogSchemaOnce sync.Once
	catalogSchema     *jsonschema.Schema
	catalogSchemaErr  error
)

func compiledCatalogSchema() (*jsonschema.Schema, error) {
	catalogSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(catalogSchemaJSON))
		if err != nil {
			catalogSchemaErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("catalog.schema.json", doc); err != nil {
			catalogSchemaErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		catalogSchema, catalogSchemaErr = c.Compile("catalog.schema.json")
	})
	return catalogSchema, catalogSchemaErr
}

// LoadCatalog reads a catalog file. The format follows the extension:
// .toml, or .yaml/.yml.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := ParseCatalog(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes catalog data in the format named by ext and checks
// the document shape before decoding it into schemas.
func ParseCatalog(ext string, data []byte) (*Catalog, error) {
	var (
		doc any
		err error
	)
	switch strings.ToLower(ext) {
	case ".toml":
		var m map[string]any
		_, err = toml.Decode(string(data), &m)
		doc = m
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCatalog, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	// Round-trip through JSON so the validator and the typed decode see the
	// same plain maps, slices and numbers regardless of the source format.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize catalog: %w", err)
	}
	if err := validateCatalog(raw); err != nil {
		return nil, err
	}

	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &cat, nil
}

func validateCatalog(raw []byte) error {
	sch, err := compiledCatalogSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: catalog: %v", model.ErrInvalidSchema, err)
	}
	return nil
}
