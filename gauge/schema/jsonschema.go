package schema

import (
	"encoding/json"
	"fmt"
)

// jsonType maps a wire type to its JSON Schema type keyword.
func jsonType(w WireType) string {
	switch w {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeJSON:
		return "object"
	case TypeArray:
		return "array"
	default:
		return "string"
	}
}

// InputSchemaMap renders a tool's input contract as a JSON Schema document
// (draft-07 compatible), suitable for OpenAI-style function declarations and
// for argument validation.
func InputSchemaMap(def *ToolDefinition) map[string]any {
	properties := make(map[string]any, len(def.Inputs.Parameters))
	var required []string

	for _, p := range def.Inputs.Parameters {
		prop := map[string]any{
			"type":        jsonType(p.ValueSchema.ValType),
			"description": p.Description,
		}
		if p.ValueSchema.ValType == TypeArray {
			items := map[string]any{"type": jsonType(p.ValueSchema.InnerValType)}
			if len(p.ValueSchema.Enum) > 0 {
				items["enum"] = p.ValueSchema.Enum
			}
			prop["items"] = items
		} else if len(p.ValueSchema.Enum) > 0 {
			prop["enum"] = p.ValueSchema.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// InputSchemaJSON marshals InputSchemaMap to bytes.
func InputSchemaJSON(def *ToolDefinition) ([]byte, error) {
	raw, err := json.Marshal(InputSchemaMap(def))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema for %s: %w", def.FullyQualifiedName, err)
	}
	return raw, nil
}
