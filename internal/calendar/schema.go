package calendar

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var schemaData []byte

// validateSchema checks a calendar blob against the embedded JSON Schema
// before decoding, so malformed configuration fails one run loudly instead of
// producing a partial calendar.
func validateSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaData)
	if err != nil {
		return fmt.Errorf("failed to compile calendar schema: %w", err)
	}

	var instance map[string]interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("calendar is not a JSON object: %w", err)
	}

	result := schema.Validate(instance)
	if !result.IsValid() {
		var errorMessages []string
		for field, evalErr := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		return fmt.Errorf("calendar validation failed: %s", strings.Join(errorMessages, "; "))
	}
	return nil
}
