package registry

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/resources.schema.json schema/recipes.schema.json
var schemaFS embed.FS

// Load reads resources.json and recipes.json from dir, validates both against
// the embedded schemas, then cross-validates references. Any failure returns
// an error wrapping ErrInvalidData.
func Load(dir string) (*Registry, error) {
	resources, err := loadDoc[ResourceDef](filepath.Join(dir, "resources.json"), "resources.schema.json")
	if err != nil {
		return nil, err
	}
	recipes, err := loadDoc[RecipeDef](filepath.Join(dir, "recipes.json"), "recipes.schema.json")
	if err != nil {
		return nil, err
	}
	return FromDefs(resources, recipes)
}

type identifiable interface {
	ResourceDef | RecipeDef
}

// loadDoc reads a document mapping id → definition, schema-validates it, and
// returns the definitions with ids filled in, sorted by id.
func loadDoc[T identifiable](path, schemaName string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidData, path, err)
	}

	schema, err := compileSchema(schemaName)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidData, path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: schema %s: %v", ErrInvalidData, filepath.Base(path), err)
	}

	var byID map[string]T
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidData, path, err)
	}

	out := make([]T, 0, len(byID))
	for id, def := range byID {
		out = append(out, withID(def, id))
	}
	// FromDefs sorts internally; order here only affects which duplicate
	// surfaces first, and map documents cannot carry duplicates anyway.
	return out, nil
}

func withID[T identifiable](def T, id string) T {
	switch d := any(def).(type) {
	case ResourceDef:
		d.ID = id
		return any(d).(T)
	case RecipeDef:
		d.ID = id
		return any(d).(T)
	}
	return def
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded schema %s: %v", ErrInvalidData, name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: schema %s: %v", ErrInvalidData, name, err)
	}
	schema, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: compile schema %s: %v", ErrInvalidData, name, err)
	}
	return schema, nil
}
