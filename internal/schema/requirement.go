package schema

// Predicate filters dependency candidates by their relation to the dependent
// element.
type Predicate func(source, target *Element) bool

// Requirement declares that an element type needs data from another type.
// The zero value of Optional means the requirement is mandatory, matching
// the common case.
type Requirement struct {
	// Name is the key under which the extracted value is passed to the
	// element's hooks, and the provided-map entry looked up when Parsed is
	// unset.
	Name string
	// Parsed pulls the dependency's fully parsed value instead of an entry
	// from its provided map.
	Parsed bool
	// MultipleResults collects a value from every matching dependency rather
	// than expecting exactly one.
	MultipleResults bool
	// Optional skips the requirement silently when nothing matches.
	Optional bool
	// Predicate optionally restricts which dependency instances qualify.
	Predicate Predicate
}

// Value is shorthand for a mandatory requirement on a dependency's parsed
// value.
func Value(name string) Requirement {
	return Requirement{Name: name, Parsed: true}
}

// SiblingPredicate accepts only dependencies sharing the dependent's parent.
func SiblingPredicate(source, target *Element) bool {
	return source.Parent() == target.Parent()
}
