// Package scan provides the generic walker the intrinsic function engine
// uses to visit, and optionally replace, every member of an arbitrarily
// nested payload of mappings, sequences and scalars.
package scan

import (
	"fmt"
	"reflect"
	"sort"
)

// Lexical scopes an intrinsic expression can be found in. Scope restricts
// which node references are legal for some functions.
const (
	NodeTemplateScope             = "node_template"
	NodeTemplateRelationshipScope = "node_template_relationship"
	OutputsScope                  = "outputs"
)

// Handler inspects one payload member and returns its (possibly replaced)
// value. context carries ambient node/relationship identifiers; path is a
// diagnostic location string.
type Handler func(value any, scope string, context map[string]any, path string) (any, error)

// Properties walks value and applies handler to every member of every
// nested mapping and sequence. With replace set, a member whose handler
// result differs is substituted in place and not descended into (the
// handler is expected to have walked the replacement itself); otherwise the
// walk recurses. Scalars at the top level are not visited.
func Properties(value any, handler Handler, scope string, context map[string]any, path string, replace bool) error {
	switch container := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(container) {
			member := container[key]
			memberPath := fmt.Sprintf("%s.%s", path, key)
			newValue, err := handler(member, scope, context, memberPath)
			if err != nil {
				return err
			}
			if replace && !reflect.DeepEqual(newValue, member) {
				container[key] = newValue
				continue
			}
			if err := Properties(member, handler, scope, context, memberPath, replace); err != nil {
				return err
			}
		}
	case []any:
		for index, member := range container {
			memberPath := fmt.Sprintf("%s[%d]", path, index)
			newValue, err := handler(member, scope, context, memberPath)
			if err != nil {
				return err
			}
			if replace && !reflect.DeepEqual(newValue, member) {
				container[index] = newValue
				continue
			}
			if err := Properties(member, handler, scope, context, memberPath, replace); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
