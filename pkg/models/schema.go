package models

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the structural contract of the interchange format: a
// start-node reference and an object of typed node objects. Node fields
// beyond type are deliberately open so unknown fields pass validation.
var documentSchema = map[string]any{
	"type":     "object",
	"required": []any{"start_node", "nodes"},
	"properties": map[string]any{
		"start_node": map[string]any{"type": "string"},
		"nodes": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":     "object",
				"required": []any{"type"},
				"properties": map[string]any{
					"type": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

// ValidateDocumentBytes checks raw document bytes against the document
// schema and returns one message per violation.
func ValidateDocumentBytes(data []byte) ([]string, error) {
	schemaLoader := gojsonschema.NewGoLoader(documentSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}

	return violations, nil
}
