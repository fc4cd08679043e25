package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaError lists every violation reported by the JSON schema validator.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "validation errors: " + strings.Join(e.Violations, "; ")
}

// ValidateSchema validates a document against a JSON schema. A nil or empty schema
// accepts everything.
func ValidateSchema(schema map[string]any, document map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}

		return &SchemaError{Violations: violations}
	}

	return nil
}
