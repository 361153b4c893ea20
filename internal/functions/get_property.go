package functions

import (
	"fmt"
	"strings"

	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/scan"
)

// GetProperty reads a static property of a node template, walking a nested
// property path. It is a template-time function only.
type GetProperty struct {
	base
	NodeName     string
	PropertyPath []any
}

// Name implements Function.
func (f *GetProperty) Name() string { return "get_property" }

// ParseArgs implements Function; expected shape is
// [node_name, property_name, nested..., ].
func (f *GetProperty) ParseArgs(args any) error {
	list, ok := args.([]any)
	if !ok || len(list) < 2 {
		return parseerr.FunctionEvaluation(f.Name(),
			"Illegal arguments passed to %s function. Expected: <node_name, property_name [, nested-property-1, ... ]> but got: %v.",
			f.Name(), args)
	}
	name, ok := list[0].(string)
	if !ok {
		return parseerr.FunctionEvaluation(f.Name(),
			"Illegal arguments passed to %s function. Node name must be a string but got: %v.", f.Name(), list[0])
	}
	f.NodeName = name
	f.PropertyPath = list[1:]
	return nil
}

// nodeTemplate resolves the node reference against the plan, honoring the
// lexical scope rules for SELF, SOURCE and TARGET.
func (f *GetProperty) nodeTemplate(plan *Plan) (map[string]any, error) {
	switch f.NodeName {
	case SelfRef:
		if f.scope != scan.NodeTemplateScope {
			return nil, parseerr.FunctionEvaluation(f.Name(),
				"%s can only be used in a context of node template but appears in %s.", SelfRef, f.scope)
		}
		return f.context, nil
	case SourceRef, TargetRef:
		if f.scope != scan.NodeTemplateRelationshipScope {
			return nil, parseerr.FunctionEvaluation(f.Name(),
				"%s can only be used within a relationship but is used in %s.", f.NodeName, f.path)
		}
		if f.NodeName == SourceRef {
			node, ok := f.context["node_template"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: relationship scope without a node template context", parseerr.ErrIllegalState)
			}
			return node, nil
		}
		relationship, _ := f.context["relationship"].(map[string]any)
		targetName, _ := relationship["target_id"].(string)
		node, ok := plan.NodeTemplate(targetName)
		if !ok {
			return nil, parseerr.FunctionEvaluation(f.Name(),
				"%s function node reference '%s' does not exist.", f.Name(), targetName)
		}
		return node, nil
	default:
		node, ok := plan.NodeTemplate(f.NodeName)
		if !ok {
			return nil, parseerr.FunctionEvaluation(f.Name(),
				"%s function node reference '%s' does not exist.", f.Name(), f.NodeName)
		}
		return node, nil
	}
}

// Validate implements Function; validation is a full static evaluation so
// missing nodes, properties and bad path segments surface before runtime.
func (f *GetProperty) Validate(plan *Plan) error {
	_, err := f.Evaluate(plan)
	return err
}

// Evaluate implements Function.
func (f *GetProperty) Evaluate(plan *Plan) (any, error) {
	node, err := f.nodeTemplate(plan)
	if err != nil {
		return nil, err
	}
	return propertyValue(nodeTemplateName(node), node["properties"], f.PropertyPath, f.path, true)
}

// EvaluateRuntime implements Function; properties are static by definition.
func (f *GetProperty) EvaluateRuntime(storage *RuntimeEvaluationStorage) (any, error) {
	return nil, parseerr.FunctionEvaluation(f.Name(),
		"runtime evaluation for %s is not supported", f.Name())
}

// functionID keys a get_property usage for circular-reference tracking, as
// "<node template name>.<property path>".
func (f *GetProperty) functionID(plan *Plan) (string, error) {
	node, err := f.nodeTemplate(plan)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(f.PropertyPath))
	for i, segment := range f.PropertyPath {
		parts[i] = fmt.Sprint(segment)
	}
	return nodeTemplateName(node) + "." + strings.Join(parts, ","), nil
}
