// Package template defines the concrete element types of the blueprint
// document: the definitions version, inputs, outputs, plugins and workflows,
// together with the operation mapping resolution shared by workflow
// declarations. The element types are consumers of the schema engine; the
// engine itself knows nothing about them.
package template
