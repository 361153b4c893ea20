package template

import (
	"github.com/vk/blueprintgo/internal/props"
	"github.com/vk/blueprintgo/internal/schema"
)

// Description is a free-text leaf, reused by the blueprint root, input
// declarations and outputs.
var Description = &schema.ElementType{
	Name:   "description",
	Schema: schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
}

var schemaPropertyType = &schema.ElementType{
	Name:   "schema_property_type",
	Schema: schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
}

var schemaPropertyDefault = &schema.ElementType{
	Name:   "schema_property_default",
	Schema: schema.UnknownSchema{},
}

var schemaPropertyRequired = &schema.ElementType{
	Name:   "schema_property_required",
	Schema: schema.Leaf{Kinds: []schema.Kind{schema.KindBoolean}},
}

// SchemaProperty is one declared input: an optional description, type,
// default and required flag. A declared default is checked against the
// declared type up front.
var SchemaProperty = &schema.ElementType{
	Name: "schema_property",
	Schema: schema.Record{
		"description": Description,
		"type":        schemaPropertyType,
		"default":     schemaPropertyDefault,
		"required":    schemaPropertyRequired,
	},
	DictResult: true,
	Validate: func(e *schema.Element, args schema.Args) error {
		declaration, _ := asMapping(e.Initial)
		typeName, _ := declaration["type"].(string)
		defaultValue, hasDefault := declaration["default"]
		if typeName == "" || !hasDefault {
			return nil
		}
		_, err := props.ParseValue(defaultValue, typeName, e.Name, nil, props.MergeParams{
			NodeName:         e.Name,
			UndefinedMessage: "'%s' input default declares property '%s' which is not part of its type",
			MissingMessage:   "'%s' input default is missing required property '%s'",
			RaiseOnMissing:   false,
		})
		return err
	},
}

// Inputs is the top-level inputs table.
var Inputs = &schema.ElementType{
	Name:       "inputs",
	Schema:     schema.Dict{Type: SchemaProperty},
	DictResult: true,
}

func asMapping(v any) (map[string]any, bool) {
	switch mapping := v.(type) {
	case map[string]any:
		return mapping, true
	case map[any]any:
		result := make(map[string]any, len(mapping))
		for key, value := range mapping {
			if s, ok := key.(string); ok {
				result[s] = value
			}
		}
		return result, true
	default:
		return nil, false
	}
}
