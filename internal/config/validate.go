package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schemaDoc  *openapi3.T
	schemaErr  error
)

func loadSchema() (*openapi3.T, error) {
	schemaOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(schemaJSON)
		if err != nil {
			schemaErr = fmt.Errorf("parse embedded config schema: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			schemaErr = fmt.Errorf("embedded config schema invalid: %w", err)
			return
		}
		schemaDoc = doc
	})
	return schemaDoc, schemaErr
}

// validateAgainst re-parses raw YAML bytes as a generic document and checks
// it against the named component schema, rejecting unknown keys
// (additionalProperties: false in schema.json). Validating the raw bytes
// rather than the typed struct is deliberate: yaml.Unmarshal into a Go
// struct silently drops unrecognized fields, which would defeat the
// "unknown keys are rejected to prevent silent typos" requirement.
func validateAgainst(componentName string, raw []byte) error {
	doc, err := loadSchema()
	if err != nil {
		return err
	}
	ref, ok := doc.Components.Schemas[componentName]
	if !ok || ref.Value == nil {
		return fmt.Errorf("config schema missing component %q", componentName)
	}

	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("parse yaml for validation: %w", err)
	}
	normalized := normalizeYAML(generic)
	b, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("normalize yaml for validation: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("re-parse normalized config: %w", err)
	}
	if err := ref.Value.VisitJSON(v); err != nil {
		return fmt.Errorf("%s: %w", componentName, err)
	}
	return nil
}

// normalizeYAML converts the map[interface{}]interface{} shapes that
// yaml.v3 produces for untyped maps into map[string]interface{}, which is
// what encoding/json (and therefore kin-openapi's VisitJSON) expects.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return t
	}
}

// validateSchemas validates every raw config file against schema.json,
// returning the first violation as a errs.ConfigError-wrapped error.
func validateSchemas(raw rawConfigFiles) error {
	checks := []struct {
		component string
		path      string
		data      []byte
	}{
		{"DataSources", raw.dataSourcesPath, raw.dataSources},
		{"ForeignKeys", raw.foreignKeysPath, raw.foreignKeys},
		{"CompanyMapping", raw.companyMappingPath, raw.companyMapping},
		{"EQCConfidence", raw.eqcConfidencePath, raw.eqcConfidence},
	}
	for _, c := range checks {
		if len(c.data) == 0 {
			continue
		}
		if err := validateAgainst(c.component, c.data); err != nil {
			return configValidationError(c.path, err)
		}
	}
	return nil
}
