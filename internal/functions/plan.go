package functions

import "github.com/vk/blueprintgo/internal/dslversion"

// Plan is the static, fully parsed view of a blueprint the engine validates
// and evaluates expressions against at template time.
type Plan struct {
	Inputs        map[string]any
	NodeTemplates []map[string]any
	Outputs       map[string]any
	Workflows     map[string]any
	Version       *dslversion.Version
}

// NodeTemplate finds a node template by id (falling back to name).
func (p *Plan) NodeTemplate(name string) (map[string]any, bool) {
	for _, t := range p.NodeTemplates {
		if t["id"] == name || t["name"] == name {
			return t, true
		}
	}
	return nil, false
}

func nodeTemplateName(t map[string]any) string {
	if s, ok := t["name"].(string); ok {
		return s
	}
	if s, ok := t["id"].(string); ok {
		return s
	}
	return ""
}

// InstanceRelationship is one relationship of a live node instance.
type InstanceRelationship struct {
	// TargetName is the template name of the relationship target.
	TargetName string
	// TargetID is the live instance id of the relationship target.
	TargetID string
}

// ScalingGroupMembership records one scaling group a live instance belongs
// to, with the concrete group instance id.
type ScalingGroupMembership struct {
	Name string
	ID   string
}

// NodeInstance is a live runtime occurrence of a node template.
type NodeInstance struct {
	ID                string
	NodeID            string
	RuntimeProperties map[string]any
	Relationships     []InstanceRelationship
	ScalingGroups     []ScalingGroupMembership
}

// NodeRelationship is a template-level relationship of a node.
type NodeRelationship struct {
	// TargetID is the template name of the relationship target.
	TargetID      string
	TypeHierarchy []string
}

// Node is the template-level data of a node as stored by the host.
type Node struct {
	ID            string
	Properties    map[string]any
	Relationships []NodeRelationship
}

// ContainedInRelationshipType is the relationship type marking containment;
// walking it transitively yields the scaling-group chain of an instance.
var ContainedInRelationshipType = "blueprint.relationships.contained_in"
