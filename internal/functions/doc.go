// Package functions implements the intrinsic function engine: a small
// expression language embedded in blueprint documents (get_input,
// get_property, get_attribute, concat) with distinct template-time and
// runtime evaluation semantics.
//
// Expressions are recognized as single-key mappings whose key matches a
// registered function name. Static evaluation resolves against the parsed
// plan; runtime evaluation resolves against live node instances through a
// read-through RuntimeEvaluationStorage fed by host callbacks, including
// the disambiguation chain used when several live instances share one
// template name.
package functions
