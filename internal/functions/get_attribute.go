package functions

import (
	"fmt"

	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/scan"
)

// GetAttribute reads a runtime attribute of a live node instance, falling
// back to the node's static properties when the runtime value is absent.
// Static evaluation only marks the owning operation and keeps the raw form;
// attributes are not resolvable until runtime.
type GetAttribute struct {
	base
	NodeName      string
	AttributePath []any
}

// Name implements Function.
func (f *GetAttribute) Name() string { return "get_attribute" }

// ParseArgs implements Function; expected shape is
// [node_name, attribute_name, nested..., ].
func (f *GetAttribute) ParseArgs(args any) error {
	list, ok := args.([]any)
	if !ok || len(list) < 2 {
		return parseerr.FunctionEvaluation(f.Name(),
			"Illegal arguments passed to %s function. Expected: <node_name, attribute_name [, nested-attr-1, ... ]> but got: %v.",
			f.Name(), args)
	}
	name, ok := list[0].(string)
	if !ok {
		return parseerr.FunctionEvaluation(f.Name(),
			"Illegal arguments passed to %s function. Node name must be a string but got: %v.", f.Name(), list[0])
	}
	f.NodeName = name
	f.AttributePath = list[1:]
	return nil
}

// Validate implements Function. SELF is only legal in node-template scope,
// SOURCE/TARGET only inside a relationship, and none of the three in the
// global outputs scope; explicit node references must exist in the plan.
func (f *GetAttribute) Validate(plan *Plan) error {
	special := f.NodeName == SelfRef || f.NodeName == SourceRef || f.NodeName == TargetRef
	if f.scope == scan.OutputsScope && special {
		return parseerr.FunctionEvaluation(f.Name(),
			"%s cannot be used with %s function in %s.", f.NodeName, f.Name(), f.path)
	}
	if f.scope == scan.NodeTemplateScope && (f.NodeName == SourceRef || f.NodeName == TargetRef) {
		return parseerr.FunctionEvaluation(f.Name(),
			"%s cannot be used with %s function in %s.", f.NodeName, f.Name(), f.path)
	}
	if f.scope == scan.NodeTemplateRelationshipScope && f.NodeName == SelfRef {
		return parseerr.FunctionEvaluation(f.Name(),
			"%s cannot be used with %s function in %s.", f.NodeName, f.Name(), f.path)
	}
	if !special {
		if _, ok := plan.NodeTemplate(f.NodeName); !ok {
			return parseerr.FunctionEvaluation(f.Name(),
				"%s function node reference '%s' does not exist.", f.Name(), f.NodeName)
		}
	}
	return nil
}

// Evaluate implements Function. Attributes stay symbolic at template time;
// the owning operation is marked so the executor knows to re-evaluate.
func (f *GetAttribute) Evaluate(plan *Plan) (any, error) {
	if operation, ok := f.context["operation"].(map[string]any); ok {
		operation["has_intrinsic_functions"] = true
	}
	return f.raw, nil
}

// EvaluateRuntime implements Function.
func (f *GetAttribute) EvaluateRuntime(storage *RuntimeEvaluationStorage) (any, error) {
	var instance *NodeInstance
	var err error
	switch f.NodeName {
	case SelfRef, SourceRef, TargetRef:
		instance, err = f.contextInstance(storage, f.NodeName)
	default:
		instance, err = f.resolveNodeInstanceByName(storage)
	}
	if err != nil {
		return nil, err
	}

	value, err := propertyValue(instance.NodeID, instance.RuntimeProperties, f.AttributePath, f.path, false)
	if err != nil {
		return nil, err
	}
	if value != nil {
		return value, nil
	}

	// Runtime value absent: fall back to the node's static properties.
	node, err := storage.Node(instance.NodeID)
	if err != nil {
		return nil, err
	}
	return propertyValue(node.ID, node.Properties, f.AttributePath, f.path, false)
}

func (f *GetAttribute) contextInstance(storage *RuntimeEvaluationStorage, ref string) (*NodeInstance, error) {
	key := map[string]string{SelfRef: "self", SourceRef: "source", TargetRef: "target"}[ref]
	instanceID, _ := f.context[key].(string)
	if instanceID == "" {
		return nil, parseerr.FunctionEvaluation(f.Name(),
			"%s is missing in request context in %s for attribute %s", ref, f.path, pathString(f.AttributePath))
	}
	return storage.NodeInstance(instanceID)
}

// resolveNodeInstanceByName disambiguates among the live instances of a
// template name: a single instance wins outright, then an explicit
// relationship from the evaluation's self instance, then the scaling-group
// chain; anything else is ambiguous.
func (f *GetAttribute) resolveNodeInstanceByName(storage *RuntimeEvaluationStorage) (*NodeInstance, error) {
	instances, err := storage.NodeInstances(f.NodeName)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, parseerr.FunctionEvaluation(f.Name(),
			"Node specified in function does not exist: %s.", f.NodeName)
	}
	if len(instances) == 1 {
		return instances[0], nil
	}

	selfInstanceID, _ := f.context["self"].(string)
	instance, err := resolveInstanceByRelationship(storage, selfInstanceID, f.NodeName, instances)
	if err != nil {
		return nil, err
	}
	if instance != nil {
		return instance, nil
	}

	instance, err = resolveInstanceByScalingGroup(storage, f.context, instances)
	if err != nil {
		return nil, err
	}
	if instance != nil {
		return instance, nil
	}

	return nil, parseerr.FunctionEvaluation(f.Name(),
		"More than one node instance found for node \"%s\". Cannot resolve a node instance unambiguously.", f.NodeName)
}

// resolveInstanceByRelationship succeeds only when the self instance has
// relationships to exactly one distinct target instance of the referenced
// node.
func resolveInstanceByRelationship(storage *RuntimeEvaluationStorage, selfInstanceID, nodeName string, candidates []*NodeInstance) (*NodeInstance, error) {
	if selfInstanceID == "" {
		return nil, nil
	}
	selfInstance, err := storage.NodeInstance(selfInstanceID)
	if err != nil {
		return nil, err
	}
	targetIDs := make(map[string]bool)
	for _, relationship := range selfInstance.Relationships {
		if relationship.TargetName == nodeName {
			targetIDs[relationship.TargetID] = true
		}
	}
	if len(targetIDs) != 1 {
		return nil, nil
	}
	for _, candidate := range candidates {
		if targetIDs[candidate.ID] {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: relationship target is not among the node's instances", parseerr.ErrIllegalState)
}

// parentInstance follows the contained-in relationship of an instance one
// level up, nil when the instance is not contained anywhere. Containment is
// exclusive; a node declaring several contained-in relationships has no
// well-defined parent.
func parentInstance(storage *RuntimeEvaluationStorage, instance *NodeInstance) (*NodeInstance, error) {
	node, err := storage.Node(instance.NodeID)
	if err != nil {
		return nil, err
	}
	var containedIn []NodeRelationship
	for _, relationship := range node.Relationships {
		if containsType(relationship.TypeHierarchy, ContainedInRelationshipType) {
			containedIn = append(containedIn, relationship)
		}
	}
	if len(containedIn) == 0 {
		return nil, nil
	}
	if len(containedIn) > 1 {
		return nil, parseerr.Logic(parseerr.CodeMultipleContainedIn,
			"Node '%s' has more than one relationship that is derived from '%s'.",
			node.ID, ContainedInRelationshipType)
	}
	targetName := containedIn[0].TargetID
	for _, instanceRelationship := range instance.Relationships {
		if instanceRelationship.TargetName == targetName {
			return storage.NodeInstance(instanceRelationship.TargetID)
		}
	}
	return nil, fmt.Errorf("%w: contained-in target '%s' missing from instance relationships",
		parseerr.ErrIllegalState, targetName)
}

// containingGroups returns the ordered chain of scaling group names an
// instance belongs to, innermost first, walking contained-in relationships
// transitively.
func containingGroups(storage *RuntimeEvaluationStorage, instance *NodeInstance) ([]string, error) {
	var result []string
	for _, group := range instance.ScalingGroups {
		result = append(result, group.Name)
	}
	parent, err := parentInstance(storage, instance)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parentGroups, err := containingGroups(storage, parent)
		if err != nil {
			return nil, err
		}
		result = append(result, parentGroups...)
	}
	return result, nil
}

// minimalSharedGroup finds the innermost scaling group containing both
// instances, "" when their chains are disjoint.
func minimalSharedGroup(storage *RuntimeEvaluationStorage, a, b *NodeInstance) (string, error) {
	aGroups, err := containingGroups(storage, a)
	if err != nil {
		return "", err
	}
	bGroups, err := containingGroups(storage, b)
	if err != nil {
		return "", err
	}
	shared := make(map[string]bool)
	for _, group := range bGroups {
		shared[group] = true
	}
	for _, group := range aGroups {
		if shared[group] {
			return group, nil
		}
	}
	return "", nil
}

// groupInstanceID resolves the concrete group instance id under which the
// given instance belongs to the named scaling group.
func groupInstanceID(storage *RuntimeEvaluationStorage, instance *NodeInstance, groupName string) (string, error) {
	for _, group := range instance.ScalingGroups {
		if group.Name == groupName {
			return group.ID, nil
		}
	}
	parent, err := parentInstance(storage, instance)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", fmt.Errorf("%w: instance '%s' does not belong to scaling group '%s'",
			parseerr.ErrIllegalState, instance.ID, groupName)
	}
	return groupInstanceID(storage, parent, groupName)
}

// resolveInstanceByScalingGroup keeps only candidates sharing the
// triggering instance's concrete group instance under their innermost
// shared scaling group, succeeding when exactly one remains. The self
// instance is consulted first, then source, then target.
func resolveInstanceByScalingGroup(storage *RuntimeEvaluationStorage, context map[string]any, candidates []*NodeInstance) (*NodeInstance, error) {
	resolveVia := func(contextInstanceID string) (*NodeInstance, error) {
		contextInstance, err := storage.NodeInstance(contextInstanceID)
		if err != nil {
			return nil, err
		}
		shared, err := minimalSharedGroup(storage, contextInstance, candidates[0])
		if err != nil {
			return nil, err
		}
		if shared == "" {
			return nil, nil
		}
		contextGroupID, err := groupInstanceID(storage, contextInstance, shared)
		if err != nil {
			return nil, err
		}
		var result []*NodeInstance
		for _, candidate := range candidates {
			candidateGroupID, err := groupInstanceID(storage, candidate, shared)
			if err != nil {
				return nil, err
			}
			if candidateGroupID == contextGroupID {
				result = append(result, candidate)
			}
		}
		if len(result) == 1 {
			return result[0], nil
		}
		return nil, nil
	}

	if selfID, _ := context["self"].(string); selfID != "" {
		return resolveVia(selfID)
	}
	sourceID, _ := context["source"].(string)
	if sourceID == "" {
		return nil, nil
	}
	instance, err := resolveVia(sourceID)
	if err != nil || instance != nil {
		return instance, err
	}
	if targetID, _ := context["target"].(string); targetID != "" {
		return resolveVia(targetID)
	}
	return nil, nil
}

func containsType(hierarchy []string, typeName string) bool {
	for _, t := range hierarchy {
		if t == typeName {
			return true
		}
	}
	return false
}
