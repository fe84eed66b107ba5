package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/catalog.schema.json
var schemaFS embed.FS

const schemaURL = "https://aerocheck.schemas.local/catalog.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func catalogSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := schemaFS.ReadFile("schema/catalog.schema.json")
		if err != nil {
			schemaErr = fmt.Errorf("catalog schema missing: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
			schemaErr = fmt.Errorf("catalog schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("catalog schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Parse decodes a YAML or JSON catalog document after validating its shape
// against the catalog JSON Schema. source names the document in errors.
func Parse(data []byte, source string) (*models.CatalogConfig, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &models.CatalogError{Source: source, Problems: []string{"failed to parse catalog YAML: " + err.Error()}}
	}
	if raw == nil {
		return nil, &models.CatalogError{Source: source, Problems: []string{"catalog document is empty"}}
	}

	if problems, err := validateShape(raw); err != nil {
		return nil, err
	} else if len(problems) > 0 {
		return nil, &models.CatalogError{Source: source, Problems: problems}
	}

	var cfg models.CatalogConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &models.CatalogError{Source: source, Problems: []string{"failed to decode catalog: " + err.Error()}}
	}
	return &cfg, nil
}

// Build parses and constructs in one step
func Build(data []byte, source string) (*Catalog, error) {
	cfg, err := Parse(data, source)
	if err != nil {
		return nil, err
	}
	c, err := New(cfg)
	if err != nil {
		var ce *models.CatalogError
		if errors.As(err, &ce) && ce.Source == "" {
			ce.Source = source
		}
		return nil, err
	}
	return c, nil
}

// validateShape runs the JSON Schema over the decoded document. The
// document is re-encoded as JSON so numbers have the types the validator expects.
func validateShape(raw interface{}) ([]string, error) {
	schema, err := catalogSchema()
	if err != nil {
		return nil, err
	}

	js, err := json.Marshal(raw)
	if err != nil {
		return []string{"catalog is not representable as JSON: " + err.Error()}, nil
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return []string{"catalog is not representable as JSON: " + err.Error()}, nil
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("catalog schema validation failed: %w", err)
	}

	var problems []string
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", loc, e.Error))
	}
	if len(problems) == 0 {
		problems = append(problems, ve.Error())
	}
	return problems, nil
}
