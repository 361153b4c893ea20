package functions

import (
	"fmt"
	"strings"

	"github.com/vk/blueprintgo/internal/parseerr"
)

// propertyValue walks a property path through nested mappings and sequences.
// With raiseIfNotFound unset, a missing path yields (nil, nil) so callers
// can fall back elsewhere; shape errors (non-integer list index) are always
// raised.
func propertyValue(nodeName string, properties any, propertyPath []any, contextPath string, raiseIfNotFound bool) (any, error) {
	value := properties
	for _, segment := range propertyPath {
		switch container := value.(type) {
		case map[string]any:
			key, ok := segment.(string)
			if !ok {
				return notFound(nodeName, propertyPath, contextPath, raiseIfNotFound)
			}
			nested, ok := container[key]
			if !ok {
				return notFound(nodeName, propertyPath, contextPath, raiseIfNotFound)
			}
			value = nested
		case []any:
			index, ok := asListIndex(segment)
			if !ok {
				return nil, parseerr.FunctionEvaluation("",
					"Node template property '%s.properties.%s' referenced from '%s' is expected %v to be an int but it is a %T.",
					nodeName, pathString(propertyPath), contextPath, segment, segment)
			}
			if index < 0 || index >= len(container) {
				if !raiseIfNotFound {
					return nil, nil
				}
				return nil, parseerr.FunctionEvaluation("",
					"Node template property '%s.properties.%s' referenced from '%s' index is out of range. Got %d but list size is %d.",
					nodeName, pathString(propertyPath), contextPath, index, len(container))
			}
			value = container[index]
		default:
			return notFound(nodeName, propertyPath, contextPath, raiseIfNotFound)
		}
	}
	return value, nil
}

func notFound(nodeName string, propertyPath []any, contextPath string, raiseIfNotFound bool) (any, error) {
	if !raiseIfNotFound {
		return nil, nil
	}
	return nil, parseerr.FunctionEvaluation("",
		"Node template property '%s.properties.%s' referenced from '%s' doesn't exist.",
		nodeName, pathString(propertyPath), contextPath)
}

func asListIndex(segment any) (int, bool) {
	switch v := segment.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func pathString(propertyPath []any) string {
	parts := make([]string, len(propertyPath))
	for i, segment := range propertyPath {
		parts[i] = fmt.Sprint(segment)
	}
	return strings.Join(parts, ".")
}
