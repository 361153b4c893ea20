package parser

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/blueprintgo/internal/ctxlog"
	"github.com/vk/blueprintgo/internal/dag"
	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/schema"
)

// Context owns everything one parse invocation creates: the full element
// set, the containment tree, the dependency graph and the input-value table.
// It is built in one pass and read-only afterwards.
type Context struct {
	// Inputs is the top-level configuration input table; requirements on the
	// reserved "inputs" key resolve here instead of through the graph.
	Inputs map[string]any

	root     *schema.Element
	elements []*schema.Element
	byType   map[string][]*schema.Element
	deps     *dag.Graph
}

// NewContext traverses the raw document against the root element type,
// instantiating one element per schema-matched sub-document, then derives
// the reversed dependency graph from the containment tree and the type-level
// requirement declarations.
func NewContext(ctx context.Context, raw any, rootType *schema.ElementType, rootName string, inputs map[string]any) *Context {
	logger := ctxlog.FromContext(ctx)
	if inputs == nil {
		inputs = map[string]any{}
	}
	c := &Context{
		Inputs: inputs,
		byType: make(map[string][]*schema.Element),
	}
	c.traverseElementType(rootType, rootName, raw, nil)
	logger.Debug("element tree built", "elements", len(c.elements))
	c.calculateDependencyGraph()
	logger.Debug("dependency graph built")
	return c
}

// Root returns the root element.
func (c *Context) Root() *schema.Element {
	return c.root
}

// ParsedValue returns the root element's parsed value, nil before
// processing.
func (c *Context) ParsedValue() any {
	if c.root == nil {
		return nil
	}
	return c.root.Value
}

// ElementsByType returns every element instantiated from the named type.
func (c *Context) ElementsByType(typeName string) []*schema.Element {
	return c.byType[typeName]
}

func (c *Context) addElement(t *schema.ElementType, name string, value any, parent *schema.Element) *schema.Element {
	e := schema.NewElement(t, name, value, parent)
	e.ID = len(c.elements)
	c.elements = append(c.elements, e)
	c.byType[t.Name] = append(c.byType[t.Name], e)
	if parent == nil {
		c.root = e
	}
	return e
}

func (c *Context) traverseElementType(t *schema.ElementType, name string, value any, parent *schema.Element) {
	e := c.addElement(t, name, value, parent)
	c.traverseSchema(t.Schema, e)
}

func (c *Context) traverseSchema(d schema.Descriptor, parent *schema.Element) {
	switch desc := d.(type) {
	case schema.Record:
		c.traverseRecord(desc, parent)
	case schema.Dict:
		mapping, ok := asStringMap(parent.Initial)
		if !ok {
			return
		}
		for _, key := range sortedMapKeys(mapping) {
			c.traverseElementType(desc.Type, key, mapping[key], parent)
		}
	case schema.List:
		sequence, ok := parent.Initial.([]any)
		if !ok {
			return
		}
		for index, item := range sequence {
			c.traverseElementType(desc.Type, strconv.Itoa(index), item, parent)
		}
	case schema.Alternatives:
		// Validation later narrows to the matching alternative; the tree
		// carries the children of every branch.
		for _, item := range desc {
			c.traverseSchema(item, parent)
		}
	case schema.Leaf, schema.UnknownSchema:
		// Terminals; nothing to descend into.
	}
}

func (c *Context) traverseRecord(record schema.Record, parent *schema.Element) {
	mapping, ok := asStringMap(parent.Initial)
	if !ok {
		return
	}
	declared := make(map[string]bool, len(record))
	for _, key := range sortedRecordKeys(record) {
		declared[key] = true
		// Absent keys still produce an element with a nil value so the
		// required-but-missing check can run later.
		c.traverseElementType(record[key], key, mapping[key], parent)
	}
	for _, key := range sortedMapKeys(mapping) {
		if !declared[key] {
			c.traverseElementType(schema.Unknown, key, mapping[key], parent)
		}
	}
}

// calculateDependencyGraph seeds the dependency graph with the containment
// tree (parents depend on their children's parsed values), adds one edge per
// requirement-qualified element pair, and reverses the result so that a
// topological sort yields producers before consumers.
func (c *Context) calculateDependencyGraph() {
	graph := dag.New()
	for _, e := range c.elements {
		graph.AddNode(e.ID)
	}
	for _, e := range c.elements {
		for _, child := range e.Children() {
			_ = graph.AddEdge(e.ID, child.ID)
		}
	}

	for _, typeName := range sortedTypeNames(c.byType) {
		elements := c.byType[typeName]
		requires := elements[0].Type.Requires
		for _, requiredType := range sortedRequireKeys(requires) {
			if requiredType == schema.RequiresInputs {
				continue
			}
			requirements := requires[requiredType]
			resolvedType := requiredType
			if requiredType == schema.RequiresSelf {
				resolvedType = typeName
			}
			for _, dependency := range c.byType[resolvedType] {
				for _, element := range elements {
					if element == dependency {
						continue
					}
					if !requirementPredicatesAllow(requirements, element, dependency) {
						continue
					}
					_ = graph.AddEdge(element.ID, dependency.ID)
				}
			}
		}
	}

	c.deps = graph.Reversed()
}

func requirementPredicatesAllow(requirements []schema.Requirement, element, dependency *schema.Element) bool {
	for _, req := range requirements {
		if req.Predicate != nil && !req.Predicate(element, dependency) {
			return false
		}
	}
	return true
}

// TopologicalOrder linearizes the reversed dependency graph so that every
// element appears strictly after everything it requires. A cycle yields a
// structured circular-dependency error carrying the cycle chain, first name
// repeated at the end.
func (c *Context) TopologicalOrder() ([]*schema.Element, error) {
	ids, err := c.deps.TopoSort()
	if err != nil {
		cycle := c.deps.FindCycle()
		names := make([]string, 0, len(cycle)+1)
		for _, id := range cycle {
			names = append(names, c.elements[id].Name)
		}
		if len(names) > 0 {
			names = append(names, names[0])
		}
		perr := parseerr.Logic(parseerr.CodeCycle,
			"Parsing failed. Circular dependency detected: %s", strings.Join(names, " --> "))
		perr.CircularDependency = names
		return nil, perr
	}
	order := make([]*schema.Element, len(ids))
	for i, id := range ids {
		order[i] = c.elements[id]
	}
	return order, nil
}

// asStringMap views a raw mapping through string keys. Non-string keys are
// dropped here; schema validation reports them on the owning element.
func asStringMap(v any) (map[string]any, bool) {
	switch mapping := v.(type) {
	case map[string]any:
		return mapping, true
	case map[any]any:
		result := make(map[string]any, len(mapping))
		for key, value := range mapping {
			if s, ok := key.(string); ok {
				result[s] = value
			}
		}
		return result, true
	default:
		return nil, false
	}
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedRecordKeys(r schema.Record) []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedTypeNames(byType map[string][]*schema.Element) []string {
	names := make([]string, 0, len(byType))
	for name := range byType {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedRequireKeys(requires map[string][]schema.Requirement) []string {
	keys := make([]string, 0, len(requires))
	for key := range requires {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
