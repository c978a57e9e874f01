package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator validates JSON documents against one compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile builds a Validator from a schema expressed as a Go map.
func Compile(name string, schemaMap map[string]any) (*Validator, error) {
	sb, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(sb)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(name string, schemaMap map[string]any) *Validator {
	v, err := Compile(name, schemaMap)
	if err != nil {
		panic(err)
	}
	return v
}

// Lazy compiles on first use.
func Lazy(name string, schemaMap map[string]any) func() *Validator {
	return sync.OnceValue(func() *Validator { return MustCompile(name, schemaMap) })
}

// Validate checks raw JSON bytes.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.ValidateValue(doc)
}

// ValidateValue checks an already decoded JSON value.
func (v *Validator) ValidateValue(doc any) error {
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
