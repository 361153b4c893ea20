package schema

// Element is one typed node of the parsed document: it wraps one raw
// sub-document, knows its type's schema, and is mutated exactly once by the
// processing pipeline (Value and Provided). Elements are exclusively owned
// by the parse invocation that created them.
type Element struct {
	// ID is the element's node ID in the owning context's graphs.
	ID int
	// Type is the element type this node was instantiated from.
	Type *ElementType
	// Name is the key or index under the element's parent. Indexes are
	// rendered in decimal.
	Name string
	// Initial is the raw sub-document, or nil when the declared key was
	// absent from the document.
	Initial any

	// Value is the parsed result, set once during processing.
	Value any
	// Provided holds the named values this element exposes to dependents,
	// set once during processing.
	Provided map[string]any

	parent   *Element
	children []*Element
}

// NewElement creates an element and links it under parent. A nil parent
// makes it a root.
func NewElement(t *ElementType, name string, initial any, parent *Element) *Element {
	e := &Element{
		Type:    t,
		Name:    name,
		Initial: initial,
		parent:  parent,
	}
	if parent != nil {
		parent.children = append(parent.children, e)
	}
	return e
}

// Parent returns the element's parent in the containment tree, nil for the
// root.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the element's direct children in creation order.
func (e *Element) Children() []*Element {
	return e.children
}

// Child returns the first direct child with the given name.
func (e *Element) Child(name string) (*Element, bool) {
	for _, child := range e.children {
		if child.Name == name {
			return child, true
		}
	}
	return nil, false
}

// Ancestor returns the nearest ancestor of the given type, or nil.
func (e *Element) Ancestor(t *ElementType) *Element {
	for current := e.parent; current != nil; current = current.parent {
		if current.Type == t {
			return current
		}
	}
	return nil
}

// BuildDictResult assembles a mapping from the parsed values of the
// element's children. Children whose key was absent from the document are
// skipped.
func (e *Element) BuildDictResult() map[string]any {
	result := make(map[string]any)
	for _, child := range e.children {
		if child.Initial == nil && child.Value == nil {
			continue
		}
		result[child.Name] = child.Value
	}
	return result
}
