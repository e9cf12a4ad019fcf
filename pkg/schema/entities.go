package schema

import (
	"github.com/invopop/jsonschema"
)

func generateSchema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return r.Reflect(v)
}

// CharacterSchema is handed to the builder form so it validates with the same
// rules the server applies.
var CharacterSchema = generateSchema[Character]()

// JSONSchemaExtend restricts attribute keys to the known attribute names.
func (Character) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties == nil {
		return
	}
	attrs, ok := s.Properties.Get("attributes")
	if !ok || attrs == nil {
		return
	}
	enum := make([]any, 0, len(AttributeNames))
	for _, name := range AttributeNames {
		enum = append(enum, string(name))
	}
	attrs.PropertyNames = &jsonschema.Schema{Type: "string", Enum: enum}
}

// JSONSchema returns the reflected Character schema.
func JSONSchema() *jsonschema.Schema {
	return CharacterSchema
}
