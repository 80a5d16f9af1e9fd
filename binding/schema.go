package binding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

// GenerateSchema generates the JSON Schema for binding records.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Unknown keys are tolerated so newer records still load.
		AllowAdditionalProperties: true,
		Anonymous:                 true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&BoundProject{})
	schema.Title = "qlink workspace binding"
	schema.Description = "Association between a workspace and a quality server project."

	return json.MarshalIndent(schema, "", "  ")
}

// Validator validates decoded binding records against the generated schema.
type Validator struct {
	schema *santhosh.Schema
}

// NewValidator compiles the binding schema.
func NewValidator() (*Validator, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate binding schema: %w", err)
	}

	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource("binding.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add binding schema resource: %w", err)
	}

	schema, err := compiler.Compile("binding.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile binding schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks a generic decoded document (from YAML or TOML).
func (v *Validator) Validate(data interface{}) error {
	// Round-trip through JSON so YAML/TOML scalar types become plain JSON values.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal binding to JSON for validation: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*santhosh.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return fmt.Errorf("schema validation failed:\n%s", strings.Join(messages, "\n"))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *santhosh.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*messages = append(*messages, fmt.Sprintf("- %s: %s", location, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
