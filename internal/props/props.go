// Package props merges declared property schemas with actual instance
// values: schema defaults fill absent properties, derived-type overrides win
// over base declarations, and every resulting value is validated against its
// declared type, recursing into user-defined data types.
package props

import (
	"fmt"
	"sort"

	"github.com/vk/blueprintgo/internal/functions"
	"github.com/vk/blueprintgo/internal/parseerr"
)

// Schema is a property schema: property name to its declaration mapping
// ("type", "default", "required").
type Schema map[string]map[string]any

// DataTypes maps user-defined type names to their definitions; each
// definition carries a "properties" Schema.
type DataTypes map[string]map[string]any

// MergeParams configures one merge pass.
type MergeParams struct {
	DataTypes DataTypes
	// NodeName names the owning element in diagnostics.
	NodeName string
	// UndefinedMessage and MissingMessage are formats taking the node name
	// and the property name.
	UndefinedMessage string
	MissingMessage   string
	// RaiseOnMissing controls whether an absent required property fails the
	// merge or is simply left out.
	RaiseOnMissing bool
	// Registry recognizes intrinsic expressions, which are never type
	// checked statically. Nil means the default registry.
	Registry *functions.Registry
}

func (p MergeParams) registry() *functions.Registry {
	if p.Registry != nil {
		return p.Registry
	}
	return functions.Default()
}

// MergeSchemas merges an overridden (base type) schema with an overriding
// (derived type) schema. Overriding declarations win; when both sides
// declare the same user-defined data type, their default mappings are merged
// key by key so a derived type only has to restate the defaults it changes.
func MergeSchemas(overridden, overriding Schema, dataTypes DataTypes) Schema {
	merged := make(Schema, len(overridden)+len(overriding))
	for name, declaration := range overriding {
		merged[name] = copyDeclaration(declaration)
	}
	for name, declaration := range overridden {
		overridingDeclaration, ok := overriding[name]
		if !ok {
			merged[name] = copyDeclaration(declaration)
			continue
		}
		typeName, _ := declaration["type"].(string)
		overridingType, _ := overridingDeclaration["type"].(string)
		if typeName == "" || typeName != overridingType {
			continue
		}
		if _, isDataType := dataTypes[typeName]; !isDataType {
			continue
		}
		baseDefault, _ := declaration["default"].(map[string]any)
		overridingDefault, _ := overridingDeclaration["default"].(map[string]any)
		if baseDefault == nil {
			continue
		}
		mergedDefault := make(map[string]any, len(baseDefault)+len(overridingDefault))
		for key, value := range baseDefault {
			mergedDefault[key] = value
		}
		for key, value := range overridingDefault {
			mergedDefault[key] = value
		}
		merged[name]["default"] = mergedDefault
	}
	return merged
}

// FlattenSchema extracts the declared defaults of a schema as a plain
// property mapping. Declarations without a default contribute nothing.
func FlattenSchema(schema Schema) map[string]any {
	flattened := make(map[string]any)
	for name, declaration := range schema {
		if defaultValue, ok := declaration["default"]; ok {
			flattened[name] = defaultValue
		}
	}
	return flattened
}

// MergeSchemaAndInstanceProperties merges actual instance values over the
// schema defaults and validates the result: undeclared properties fail with
// code 106, absent required properties with code 107, and each value is
// type checked via ParseValue.
func MergeSchemaAndInstanceProperties(instanceProperties map[string]any, schema Schema, params MergeParams) (map[string]any, error) {
	return mergeFlattened(instanceProperties, FlattenSchema(schema), schema, params)
}

func mergeFlattened(instanceProperties, flattened map[string]any, schema Schema, params MergeParams) (map[string]any, error) {
	for _, name := range sortedKeys(instanceProperties) {
		if _, declared := schema[name]; !declared {
			return nil, parseerr.Logic(parseerr.CodeUndefinedProperty,
				params.UndefinedMessage, params.NodeName, name)
		}
	}

	merged := make(map[string]any, len(flattened)+len(instanceProperties))
	for name, value := range flattened {
		merged[name] = value
	}
	for name, value := range instanceProperties {
		merged[name] = value
	}

	result := make(map[string]any, len(merged))
	for _, name := range sortedSchemaKeys(schema) {
		declaration := schema[name]
		value, present := merged[name]
		if !present {
			if isRequired(declaration) && params.RaiseOnMissing {
				return nil, parseerr.Logic(parseerr.CodeMissingRequiredProperty,
					params.MissingMessage, params.NodeName, name)
			}
			continue
		}
		typeName, _ := declaration["type"].(string)
		// The declared default backfills keys a partial data-type value omits.
		declaredDefault, _ := flattened[name].(map[string]any)
		parsed, err := ParseValue(value, typeName, name, declaredDefault, params)
		if err != nil {
			return nil, err
		}
		result[name] = parsed
	}
	return result, nil
}

// ParseValue type checks one property value against a declared type name.
// An empty type name or an intrinsic expression passes through untouched.
// User-defined data types recurse through the type's own property schema,
// with derivedDefault supplying the defaults a derived declaration overrode.
func ParseValue(value any, typeName, propertyPath string, derivedDefault map[string]any, params MergeParams) (any, error) {
	if typeName == "" || value == nil {
		return value, nil
	}
	parsed, err := params.registry().Parse(value, "", nil, propertyPath)
	if err == nil {
		if _, isFunction := parsed.(functions.Function); isFunction {
			return value, nil
		}
	}

	switch typeName {
	case "string":
		return value, nil
	case "integer":
		switch value.(type) {
		case int, int64:
			return value, nil
		}
	case "float":
		switch value.(type) {
		case int, int64, float64:
			return value, nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return value, nil
		}
	default:
		definition, known := params.DataTypes[typeName]
		if !known {
			return nil, parseerr.Logic(parseerr.CodeValueDoesNotMatchType,
				"Property type validation failed in '%s': unknown type '%s'",
				propertyPath, typeName)
		}
		mapping, ok := value.(map[string]any)
		if !ok {
			break
		}
		schema := asSchema(definition["properties"])
		flattened := FlattenSchema(schema)
		for key, defaultValue := range derivedDefault {
			flattened[key] = defaultValue
		}
		nested := params
		nested.NodeName = fmt.Sprintf("%s.%s", params.NodeName, propertyPath)
		return mergeFlattened(mapping, flattened, schema, nested)
	}

	return nil, parseerr.Logic(parseerr.CodeValueDoesNotMatchType,
		"Property type validation failed in '%s': the defined type is '%s', yet it was assigned with the value '%v'",
		propertyPath, typeName, value)
}

func isRequired(declaration map[string]any) bool {
	if required, ok := declaration["required"].(bool); ok {
		return required
	}
	return true
}

func copyDeclaration(declaration map[string]any) map[string]any {
	clone := make(map[string]any, len(declaration))
	for key, value := range declaration {
		clone[key] = value
	}
	return clone
}

func asSchema(raw any) Schema {
	mapping, ok := raw.(map[string]any)
	if !ok {
		return Schema{}
	}
	schema := make(Schema, len(mapping))
	for name, declaration := range mapping {
		if m, ok := declaration.(map[string]any); ok {
			schema[name] = m
		}
	}
	return schema
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedSchemaKeys(schema Schema) []string {
	keys := make([]string, 0, len(schema))
	for key := range schema {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
