package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Embedded JSON Schemas for the four customization payloads. Updates are
// validated against these before anything is persisted.
const (
	brandingSchema = `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {
			"primary_color":   { "type": "string", "pattern": "^#[0-9a-fA-F]{6}$" },
			"secondary_color": { "type": "string", "pattern": "^#[0-9a-fA-F]{6}$" },
			"logo_url":        { "type": ["string", "null"] },
			"favicon_url":     { "type": ["string", "null"] },
			"app_name":        { "type": "string", "minLength": 1, "maxLength": 100 }
		},
		"additionalProperties": false
	}`

	terminologySchema = `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"patternProperties": {
			"^[a-z_]+$": { "type": "string", "minLength": 1, "maxLength": 50 }
		},
		"additionalProperties": false
	}`

	featuresSchema = `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"patternProperties": {
			"^[a-z_]+$": { "type": "boolean" }
		},
		"additionalProperties": false
	}`

	dashboardLayoutSchema = `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {
			"widgets":          { "type": "array", "items": { "type": "string" } },
			"charts":           { "type": "array", "items": { "type": "string" } },
			"show_weather":     { "type": "boolean" },
			"show_gps_map":     { "type": "boolean" },
			"default_view":     { "type": "string", "enum": ["grid", "list", "compact"] },
			"refresh_interval": { "type": "integer", "minimum": 30, "maximum": 3600 }
		},
		"additionalProperties": false
	}`
)

// payloadValidator compiles the embedded schemas once and checks update
// payloads against them.
type payloadValidator struct {
	schemas map[string]*jsonschema.Schema
}

func newPayloadValidator() (*payloadValidator, error) {
	sources := map[string]string{
		"branding":         brandingSchema,
		"terminology":      terminologySchema,
		"features":         featuresSchema,
		"dashboard_layout": dashboardLayoutSchema,
	}

	compiler := jsonschema.NewCompiler()
	for name, source := range sources {
		url := fmt.Sprintf("memory://settings/%s.json", name)
		if err := compiler.AddResource(url, strings.NewReader(source)); err != nil {
			return nil, fmt.Errorf("register schema %s: %w", name, err)
		}
	}

	compiled := make(map[string]*jsonschema.Schema, len(sources))
	for name := range sources {
		url := fmt.Sprintf("memory://settings/%s.json", name)
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		compiled[name] = schema
	}

	return &payloadValidator{schemas: compiled}, nil
}

// validate checks one named payload; nil payloads are skipped (absent fields
// keep their stored value).
func (v *payloadValidator) validate(name string, payload json.RawMessage) error {
	if len(payload) == 0 {
		return nil
	}

	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("no schema registered for payload %q", name)
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("decode %s payload: %w", name, err)
	}

	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%s payload: %w", name, err)
	}
	return nil
}
