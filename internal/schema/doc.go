// Package schema holds the declarative vocabulary the parser consumes: shape
// descriptors (leaf, dict-of, list-of, fixed record, ordered alternatives),
// element type definitions with their validate/parse/provide hooks, and the
// cross-element requirement declarations that drive dependency ordering.
//
// Descriptors are pure data. Malformed descriptors are a defect in the
// consuming type definitions, not in any document, and are rejected once, up
// front, by ValidateSchemaAPI before a document is ever processed.
package schema
