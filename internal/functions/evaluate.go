package functions

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/blueprintgo/internal/ctxlog"
	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/scan"
)

// Engine drives intrinsic expression validation and evaluation over a parsed
// plan or an arbitrary payload. It holds no state besides its registry.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine over the given registry, or the default
// registry when nil.
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = Default()
	}
	return &Engine{registry: registry}
}

type evaluator func(fn Function) (any, error)

// handler builds the scan handler that drives expressions to a fixed point:
// an evaluation result may itself contain expressions (or still be one), so
// the result is re-parsed and re-scanned until a full pass changes nothing.
func (e *Engine) handler(eval evaluator) scan.Handler {
	var h scan.Handler
	h = func(value any, scope string, context map[string]any, path string) (any, error) {
		scanned := false
		for {
			parsed, err := e.registry.Parse(value, scope, context, path)
			if err != nil {
				return nil, err
			}
			fn, ok := parsed.(Function)
			if !ok {
				break
			}
			previous := value
			value, err = eval(fn)
			if err != nil {
				return nil, err
			}
			if scanned && reflect.DeepEqual(previous, value) {
				break
			}
			if err := scan.Properties(value, h, scope, context, path, true); err != nil {
				return nil, err
			}
			scanned = true
		}
		return value, nil
	}
	return h
}

// PlanEvaluationHandler returns a scan handler resolving expressions at
// template time against a parsed plan.
func (e *Engine) PlanEvaluationHandler(plan *Plan) scan.Handler {
	return e.handler(func(fn Function) (any, error) {
		return fn.Evaluate(plan)
	})
}

// RuntimeEvaluationHandler returns a scan handler resolving expressions
// against live instance data read through storage.
func (e *Engine) RuntimeEvaluationHandler(storage *RuntimeEvaluationStorage) scan.Handler {
	return e.handler(func(fn Function) (any, error) {
		return fn.EvaluateRuntime(storage)
	})
}

// EvaluateFunctions resolves every intrinsic expression inside payload in
// place, against live instance data reachable through the three accessors.
// evalContext carries the ambient self/source/target instance ids.
func (e *Engine) EvaluateFunctions(
	ctx context.Context,
	payload map[string]any,
	evalContext map[string]any,
	getNodeInstances GetNodeInstancesFunc,
	getNodeInstance GetNodeInstanceFunc,
	getNode GetNodeFunc,
) (map[string]any, error) {
	ctxlog.FromContext(ctx).Debug("evaluating runtime functions", "members", len(payload))
	storage := NewRuntimeEvaluationStorage(getNodeInstances, getNodeInstance, getNode)
	handler := e.RuntimeEvaluationHandler(storage)
	if evalContext == nil {
		evalContext = map[string]any{}
	}
	if err := scan.Properties(payload, handler, scan.NodeTemplateScope, evalContext, "payload", true); err != nil {
		return nil, err
	}
	return payload, nil
}

// EvaluateOutputs resolves the deployment outputs definition to concrete
// values against live instance data.
func (e *Engine) EvaluateOutputs(
	ctx context.Context,
	outputsDef map[string]any,
	getNodeInstances GetNodeInstancesFunc,
	getNodeInstance GetNodeInstanceFunc,
	getNode GetNodeFunc,
) (map[string]any, error) {
	ctxlog.FromContext(ctx).Debug("evaluating outputs", "outputs", len(outputsDef))
	storage := NewRuntimeEvaluationStorage(getNodeInstances, getNodeInstance, getNode)
	handler := e.RuntimeEvaluationHandler(storage)
	outputs := make(map[string]any, len(outputsDef))
	for _, name := range sortedMapKeys(outputsDef) {
		definition, _ := outputsDef[name].(map[string]any)
		outputs[name] = definition["value"]
	}
	if err := scan.Properties(outputs, handler, scan.OutputsScope, map[string]any{}, "outputs", true); err != nil {
		return nil, err
	}
	return outputs, nil
}

// ValidateFunctions statically validates every intrinsic expression in the
// plan and rejects circular get_property chains. The plan is left unchanged.
func (e *Engine) ValidateFunctions(ctx context.Context, plan *Plan) error {
	ctxlog.FromContext(ctx).Debug("validating functions", "node_templates", len(plan.NodeTemplates))
	var properties []*GetProperty

	collect := func(value any, scope string, context map[string]any, path string) (any, error) {
		parsed, err := e.registry.Parse(value, scope, context, path)
		if err != nil {
			return nil, err
		}
		fn, ok := parsed.(Function)
		if !ok {
			return value, nil
		}
		if err := fn.Validate(plan); err != nil {
			return nil, err
		}
		// get_property usages stay in the tree as live instances so chains
		// through other properties can be followed below.
		if gp, ok := fn.(*GetProperty); ok {
			properties = append(properties, gp)
			return gp, nil
		}
		return value, nil
	}
	if err := e.scanServiceTemplate(plan, collect, true); err != nil {
		e.revertFunctionInstances(plan)
		return err
	}

	err := e.validateNoCircularProperties(plan, properties)
	e.revertFunctionInstances(plan)
	return err
}

func (e *Engine) validateNoCircularProperties(plan *Plan, properties []*GetProperty) error {
	var follow func(fn *GetProperty, visited []string) error

	// A chain link may sit inside a container value, so every result is
	// walked for nested instances, not just tested directly.
	followValue := func(value any, visited []string) error {
		if next, ok := value.(*GetProperty); ok {
			return follow(next, visited)
		}
		nested := func(member any, scope string, context map[string]any, path string) (any, error) {
			if next, ok := member.(*GetProperty); ok {
				return member, follow(next, visited)
			}
			return member, nil
		}
		return scan.Properties(value, nested, "", nil, "", false)
	}

	follow = func(fn *GetProperty, visited []string) error {
		id, err := fn.functionID(plan)
		if err != nil {
			return err
		}
		for _, seen := range visited {
			if seen == id {
				chain := append(append([]string(nil), visited...), id)
				return parseerr.FunctionEvaluation(fn.Name(),
					"Circular get_property function call detected: %s",
					strings.Join(chain, " -> "))
			}
		}
		visited = append(append([]string(nil), visited...), id)
		value, err := fn.Evaluate(plan)
		if err != nil {
			return err
		}
		return followValue(value, visited)
	}
	for _, fn := range properties {
		if err := follow(fn, nil); err != nil {
			return err
		}
	}
	return nil
}

// revertFunctionInstances swaps any function instance left in the plan tree
// back to its raw mapping form.
func (e *Engine) revertFunctionInstances(plan *Plan) {
	restore := func(value any, scope string, context map[string]any, path string) (any, error) {
		if gp, ok := value.(*GetProperty); ok {
			return gp.raw, nil
		}
		return value, nil
	}
	// restore never fails.
	_ = e.scanServiceTemplate(plan, restore, true)
}

// scanServiceTemplate visits every location of the plan where intrinsic
// expressions are legal: node properties, operation inputs, relationship
// properties and operation inputs, and output values.
func (e *Engine) scanServiceTemplate(plan *Plan, handler scan.Handler, replace bool) error {
	for _, node := range plan.NodeTemplates {
		name := nodeTemplateName(node)
		if err := scan.Properties(node["properties"], handler,
			scan.NodeTemplateScope, node, name+".properties", replace); err != nil {
			return err
		}
		if err := scanOperationInputs(node["operations"], handler,
			scan.NodeTemplateScope, node, name+".operations", replace); err != nil {
			return err
		}
		relationships, _ := node["relationships"].([]any)
		for index, raw := range relationships {
			relationship, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			context := map[string]any{
				"node_template": node,
				"relationship":  relationship,
			}
			relationshipPath := fmt.Sprintf("%s.relationships[%d]", name, index)
			if err := scan.Properties(relationship["properties"], handler,
				scan.NodeTemplateRelationshipScope, context, relationshipPath+".properties", replace); err != nil {
				return err
			}
			for _, operationsKey := range []string{"source_operations", "target_operations"} {
				if err := scanOperationInputs(relationship[operationsKey], handler,
					scan.NodeTemplateRelationshipScope, context,
					relationshipPath+"."+operationsKey, replace); err != nil {
					return err
				}
			}
		}
	}
	for _, name := range sortedMapKeys(plan.Outputs) {
		definition, ok := plan.Outputs[name].(map[string]any)
		if !ok {
			continue
		}
		if err := scan.Properties(definition["value"], handler,
			scan.OutputsScope, map[string]any{}, "outputs."+name+".value", replace); err != nil {
			return err
		}
	}
	return nil
}

func scanOperationInputs(operations any, handler scan.Handler, scope string, context map[string]any, path string, replace bool) error {
	mapping, ok := operations.(map[string]any)
	if !ok {
		return nil
	}
	for _, operationName := range sortedMapKeys(mapping) {
		operation, ok := mapping[operationName].(map[string]any)
		if !ok {
			continue
		}
		operationContext := make(map[string]any, len(context)+1)
		for key, value := range context {
			operationContext[key] = value
		}
		operationContext["operation"] = operation
		if err := scan.Properties(operation["inputs"], handler, scope, operationContext,
			fmt.Sprintf("%s.%s.inputs", path, operationName), replace); err != nil {
			return err
		}
	}
	return nil
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
