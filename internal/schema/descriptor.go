package schema

import "fmt"

// Kind identifies the runtime shape of a raw document value.
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindMap
	KindList
)

// String renders the kind the way it is shown to template authors.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindMap:
		return "dict"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf reports the Kind of a raw document value. The second return value is
// false for nil and for values outside the raw-document vocabulary.
func KindOf(v any) (Kind, bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case bool:
		return KindBoolean, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger, true
	case float32, float64:
		return KindFloat, true
	case map[string]any, map[any]any:
		return KindMap, true
	case []any:
		return KindList, true
	default:
		return 0, false
	}
}

// KindName names the runtime shape of a value for error messages, falling
// back to the Go type for values outside the vocabulary.
func KindName(v any) string {
	if v == nil {
		return "null"
	}
	if kind, ok := KindOf(v); ok {
		return kind.String()
	}
	return fmt.Sprintf("%T", v)
}

// Descriptor is the tagged-variant shape rule attached to an element type.
// Exactly five variants exist: Leaf, Dict, List, Record and Alternatives,
// plus the internal UnknownSchema used for undeclared document keys.
type Descriptor interface {
	descriptor()
}

// Leaf matches a terminal value whose kind is one of the declared kinds.
type Leaf struct {
	Kinds []Kind
}

// Dict matches a mapping whose values are all parsed by a single element type.
type Dict struct {
	Type *ElementType
}

// List matches a sequence whose items are all parsed by a single element type.
type List struct {
	Type *ElementType
}

// Record matches a heterogeneous mapping with a fixed key set, each key
// parsed by its own element type.
type Record map[string]*ElementType

// Alternatives is an ordered list of candidate descriptors; the first one
// that validates wins. Alternatives may not nest other Alternatives.
type Alternatives []Descriptor

// UnknownSchema matches anything and descends into nothing. It backs the
// Unknown element type created for document keys absent from a Record.
type UnknownSchema struct{}

func (Leaf) descriptor()          {}
func (Dict) descriptor()          {}
func (List) descriptor()          {}
func (Record) descriptor()        {}
func (Alternatives) descriptor()  {}
func (UnknownSchema) descriptor() {}
