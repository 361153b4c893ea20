package schema

import (
	"sort"

	"github.com/vk/blueprintgo/internal/parseerr"
)

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSchemaAPI shape-checks an element type's descriptor tree once, up
// front, before any document is processed. A failure here is a defect in the
// consuming type definitions, never in a document.
func ValidateSchemaAPI(root *ElementType) error {
	if root == nil {
		return parseerr.SchemaAPI("root element type must not be nil")
	}
	return validateElementType(root, make(map[*ElementType]bool))
}

func validateElementType(t *ElementType, visited map[*ElementType]bool) error {
	if t == nil {
		return parseerr.SchemaAPI("element type must not be nil")
	}
	// Element types may legally reference themselves through Dict or List
	// descriptors; the visited set terminates the walk.
	if visited[t] {
		return nil
	}
	visited[t] = true
	if t.Schema == nil {
		return parseerr.SchemaAPI("element type '%s' has no schema", t.Name)
	}
	return validateDescriptor(t, t.Schema, false, visited)
}

func validateDescriptor(t *ElementType, d Descriptor, insideAlternatives bool, visited map[*ElementType]bool) error {
	switch desc := d.(type) {
	case Leaf:
		if len(desc.Kinds) == 0 {
			return parseerr.SchemaAPI("leaf schema of element type '%s' declares no kinds", t.Name)
		}
	case Dict:
		return validateElementType(desc.Type, visited)
	case List:
		return validateElementType(desc.Type, visited)
	case Record:
		for _, key := range sortedKeys(desc) {
			if key == "" {
				return parseerr.SchemaAPI("record schema of element type '%s' has an empty key", t.Name)
			}
			if err := validateElementType(desc[key], visited); err != nil {
				return err
			}
		}
	case Alternatives:
		if insideAlternatives {
			return parseerr.SchemaAPI("alternatives schema of element type '%s' nests another alternatives schema", t.Name)
		}
		if len(desc) == 0 {
			return parseerr.SchemaAPI("alternatives schema of element type '%s' is empty", t.Name)
		}
		for _, item := range desc {
			if err := validateDescriptor(t, item, true, visited); err != nil {
				return err
			}
		}
	case UnknownSchema:
		// Matches anything; nothing to check.
	default:
		return parseerr.SchemaAPI("element type '%s' has an unsupported schema descriptor %T", t.Name, d)
	}
	return nil
}
