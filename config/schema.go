package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for qlink.yml.
// Extension sections are not described; they are accepted as additional
// properties.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		// Expand struct references instead of using $ref for cleaner base schema.
		ExpandedStruct: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	// Extensions is inlined by yaml and has no schema of its own.
	type BaseConfig struct {
		Version string        `yaml:"version" jsonschema:"description=Configuration version (e.g. '1.0')"`
		Binding BindingConfig `yaml:"binding,omitempty" jsonschema:"description=Where workspace bindings are stored"`
		Watch   WatchConfig   `yaml:"watch,omitempty" jsonschema:"description=Binding file watcher"`
		Refresh RefreshConfig `yaml:"refresh,omitempty" jsonschema:"description=Quality server requests"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "qlink configuration"
	schema.Description = "Schema for qlink.yml properties."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}
