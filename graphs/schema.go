package graphs

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaFor infers the output schema of T.
func SchemaFor[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	return schema, nil
}

// cloneSchema deep-copies schema through its JSON form.
func cloneSchema(schema *jsonschema.Schema) (*jsonschema.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: encode schema: %v", ErrInvalidConfig, err)
	}

	var clone jsonschema.Schema
	if err := json.Unmarshal(encoded, &clone); err != nil {
		return nil, fmt.Errorf("%w: decode schema: %v", ErrInvalidConfig, err)
	}
	return &clone, nil
}
