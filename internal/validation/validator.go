package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request schema names.
const (
	CreateMatch    = "create_match"
	JoinMatch      = "join_match"
	DeclareResult  = "declare_result"
	ResolveDispute = "resolve_dispute"
	Deposit        = "deposit"
)

// ErrValidation can be used with errors.Is to detect schema rejections.
var ErrValidation = errors.New("validation failed")

//go:embed schemas/*.json
var schemaFiles embed.FS

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded request schema.
func New() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFiles, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		data, err := schemaFiles.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		id := "https://arena.local/schemas/" + name + ".json"
		if err := compiler.AddResource(id, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %q: %w", name, err)
		}
		schemas[name], err = compiler.Compile(id)
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate rejects body unless it is JSON matching the named schema.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
