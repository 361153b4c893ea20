package schema

// Reserved keys in an ElementType's Requires table.
const (
	// RequiresInputs resolves requirement values from the parse call's input
	// table instead of the dependency graph.
	RequiresInputs = "inputs"
	// RequiresSelf aliases the element's own type, for dependencies between
	// instances of the same type.
	RequiresSelf = "self"
)

// Args carries the requirement values extracted for an element, keyed by
// requirement name. The same Args value is handed to all three lifecycle
// hooks of the element.
type Args map[string]any

// Bool reads a boolean argument, treating absence as false.
func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// ElementType describes one typed node kind of the document tree: its shape,
// whether it must be present, what it needs from other elements, and the
// hooks that turn its raw value into a parsed one.
//
// Hooks are optional. A nil Validate accepts anything that passed schema
// validation; a nil Parse yields the raw initial value, or the assembled
// child map when DictResult is set; a nil CalculateProvided provides nothing.
type ElementType struct {
	Name     string
	Schema   Descriptor
	Required bool

	// Requires maps a required element type name (or a reserved key) to the
	// values wanted from it. An entry with no requirements is a pure ordering
	// dependency.
	Requires map[string][]Requirement

	// Provides names the keys this type exposes through CalculateProvided.
	Provides []string

	// DictResult makes the default parse assemble a mapping from the parsed
	// values of the element's children instead of returning the raw value.
	DictResult bool

	Validate          func(e *Element, args Args) error
	ValidateVersion   func(e *Element, version any) error
	Parse             func(e *Element, args Args) (any, error)
	CalculateProvided func(e *Element, args Args) (map[string]any, error)
}

// Unknown is the element type instantiated for document keys that no Record
// declares. Unknown elements keep the raw value so non-strict parses can
// still observe it; strict parses reject their presence.
var Unknown = &ElementType{
	Name:   "unknown",
	Schema: UnknownSchema{},
}
